package configtxlator

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MsgTypeConfig is the message type of a channel configuration.
const MsgTypeConfig = "common.Config"

// Client talks to a configtxlator service. Decoding and encoding go through its REST API; update computation runs a script that round-trips through temporary files.
type Client struct {
	// BaseURL 形如 `http://127.0.0.1:7059`。
	BaseURL    string
	HTTPClient *http.Client
	Gateway    gateway.Gateway
	// ComputeScript 为计算配置差异的脚本路径。参数为 `<channel> <original> <updated> <protocol> <host> <port> <dir>`，结果写入 `<dir>/<channel>-config-diff.proto`。
	ComputeScript string
	// WorkDir 为临时文件的父目录。为空时使用系统临时目录。
	WorkDir       string
	ScriptTimeout time.Duration
}

// NewClient creates a client with a default HTTP client.
func NewClient(baseURL string, gw gateway.Gateway, computeScript string, workDir string, scriptTimeout time.Duration) *Client {
	return &Client{
		BaseURL:       baseURL,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		Gateway:       gw,
		ComputeScript: computeScript,
		WorkDir:       workDir,
		ScriptTimeout: scriptTimeout,
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	endpoint := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法构造请求 '%v'", endpoint)
	}

	req.Header.Add("Content-Type", "application/octet-stream")
	req.Header.Add("Content-Length", strconv.Itoa(len(body)))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "请求 '%v' 失败", endpoint)
	}
	defer resp.Body.Close()

	respBodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法读取 '%v' 的响应", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorcode.New(errorcode.KindConfigTranslation, "请求 '%v' 失败，HTTP 状态码 %v", path, resp.StatusCode).
			WithDetails(string(respBodyBytes))
	}

	return respBodyBytes, nil
}

// Decode converts a binary message of type `msgType` into its structured form. Numbers are kept as `json.Number` so that they survive a round trip unchanged.
func (c *Client) Decode(ctx context.Context, msgType string, data []byte) (map[string]interface{}, error) {
	respBodyBytes, err := c.post(ctx, "/protolator/decode/"+url.PathEscape(msgType), data)
	if err != nil {
		return nil, err
	}

	if len(respBodyBytes) == 0 {
		return nil, errorcode.New(errorcode.KindConfigTranslation, "'%v' 的解码结果为空", msgType)
	}

	decoder := json.NewDecoder(bytes.NewReader(respBodyBytes))
	decoder.UseNumber()
	var ret map[string]interface{}
	if err = decoder.Decode(&ret); err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法将 '%v' 的解码结果解析为 JSON", msgType)
	}

	return ret, nil
}

// Encode converts a structured message of type `msgType` back into its binary form.
func (c *Client) Encode(ctx context.Context, msgType string, v interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(v)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法序列化 '%v'", msgType)
	}

	return c.post(ctx, "/protolator/encode/"+url.PathEscape(msgType), reqBody)
}

// ComputeUpdate computes the binary config update that turns `original` into `updated` for the channel. Both buffers must come from the same retrieved snapshot.
func (c *Client) ComputeUpdate(ctx context.Context, channelID string, original, updated []byte) (ret []byte, err error) {
	if c.ComputeScript == "" {
		return nil, errors.New("未配置计算配置更新的脚本")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "无法解析 configtxlator 地址 '%v'", c.BaseURL)
	}

	dir, err := c.Gateway.MkdirTemp(c.WorkDir, channelID+"-update-")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := c.Gateway.RemoveAll(dir); rmErr != nil {
			log.Warnf("无法删除临时目录 '%v': %v", dir, rmErr)
		}
	}()

	originalPath := filepath.Join(dir, channelID+"-originalBuffer.proto")
	updatedPath := filepath.Join(dir, channelID+"-updateBuffer.proto")
	if err = c.Gateway.WriteFile(originalPath, original, 0644); err != nil {
		return nil, err
	}
	if err = c.Gateway.WriteFile(updatedPath, updated, 0644); err != nil {
		return nil, err
	}

	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	spec := gateway.ScriptSpec{
		Path:    c.ComputeScript,
		Args:    []string{channelID, originalPath, updatedPath, u.Scheme, u.Hostname(), port, dir},
		Timeout: c.ScriptTimeout,
	}
	if err = c.Gateway.RunScript(ctx, spec); err != nil {
		return nil, err
	}

	ret, err = c.Gateway.ReadFile(filepath.Join(dir, channelID+"-config-diff.proto"))
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindConfigTranslation, "脚本未生成通道 '%v' 的配置差异", channelID)
	}
	if len(ret) == 0 {
		return nil, errorcode.New(errorcode.KindConfigTranslation, "通道 '%v' 的配置没有变化", channelID)
	}

	return ret, nil
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return "7059"
	}
}
