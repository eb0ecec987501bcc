package archive

import (
	"bytes"
	"context"
	"io/ioutil"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
)

// IPFSArchive uploads snapshots to an IPFS node. The location of a snapshot is its CID.
type IPFSArchive struct {
	sh *shell.Shell
	// URL 为 IPFS API 地址，形如 `127.0.0.1:5001`。
	URL string
}

// NewIPFSArchive creates an archive backed by the IPFS node at `url`.
func NewIPFSArchive(url string, timeout time.Duration) *IPFSArchive {
	sh := shell.NewShell(url)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSArchive{sh: sh, URL: url}
}

func (a *IPFSArchive) Name() string {
	return "ipfs-" + a.URL
}

func (a *IPFSArchive) Put(ctx context.Context, name string, data []byte) (string, error) {
	defer timingutils.GetDeferrableTimingLogger("上传 " + name + " 至 IPFS")()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	cid, err := a.sh.Add(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrapf(err, "无法将 '%v' 上传至 IPFS 网络", name)
	}

	return cid, nil
}

func (a *IPFSArchive) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := a.sh.Cat(location)
	if err != nil {
		return nil, errors.Wrapf(err, "无法从 IPFS 网络获取 '%v'", location)
	}
	defer reader.Close()

	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "无法读取 '%v' 的内容", location)
	}

	return data, nil
}
