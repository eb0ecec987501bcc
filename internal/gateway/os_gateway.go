package gateway

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"gitee.com/czyczk/fabric-netadmin/internal/utils/timingutils"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/otiai10/copy"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OSGateway runs scripts with `sh` and performs file operations on the local file system.
type OSGateway struct{}

// NewOSGateway returns a gateway backed by the host.
func NewOSGateway() *OSGateway {
	return &OSGateway{}
}

func (g *OSGateway) RunScript(ctx context.Context, spec ScriptSpec) error {
	defer timingutils.GetDeferrableTimingLogger("执行脚本 " + spec.Path)()

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := append([]string{spec.Path}, spec.Args...)
	cmd := exec.CommandContext(ctx, "sh", args...)
	cmd.Dir = spec.Dir
	var stderr, stdout bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stdout

	log.Debugf("执行脚本: sh %v", strings.Join(args, " "))
	err := cmd.Run()
	if stdout.Len() > 0 {
		log.Debugf("脚本 '%v' 输出:\n%v", spec.Path, stdout.String())
	}
	if err == nil {
		return nil
	}

	if ctxErr := scriptContextError(spec.Path, ctx.Err()); ctxErr != nil {
		return ctxErr
	}

	ce := errorcode.Wrap(err, errorcode.KindSubprocess, "脚本 '%v' 执行失败", spec.Path)
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		ce.WithDetails(msg)
	}
	return ce
}

func (g *OSGateway) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorcode.Wrap(err, errorcode.KindFile, "无法读取文件 '%v'", path)
	}

	return data, nil
}

func (g *OSGateway) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return errorcode.Wrap(err, errorcode.KindFile, "无法写入文件 '%v'", path)
	}

	return nil
}

func (g *OSGateway) MkdirAll(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return errorcode.Wrap(err, errorcode.KindFile, "无法创建目录 '%v'", path)
	}

	return nil
}

func (g *OSGateway) MkdirTemp(dir, pattern string) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errorcode.Wrap(err, errorcode.KindFile, "无法创建目录 '%v'", dir)
		}
	}

	path, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return "", errorcode.Wrap(err, errorcode.KindFile, "无法在 '%v' 中创建临时目录", dir)
	}

	return path, nil
}

// Rename moves a file or directory. Across devices it falls back to copy-then-remove.
func (g *OSGateway) Rename(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		log.Debugf("'%v' 与 '%v' 不在同一设备上，改为复制", oldPath, newPath)
		if err = copy.Copy(oldPath, newPath); err != nil {
			_ = os.RemoveAll(newPath)
			return errorcode.Wrap(err, errorcode.KindFile, "无法复制 '%v' 到 '%v'", oldPath, newPath)
		}
		return g.RemoveAll(oldPath)
	}

	return errorcode.Wrap(err, errorcode.KindFile, "无法移动 '%v' 到 '%v'", oldPath, newPath)
}

func (g *OSGateway) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errorcode.Wrap(err, errorcode.KindFile, "无法删除 '%v'", path)
	}

	return nil
}

func (g *OSGateway) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, errorcode.Wrap(err, errorcode.KindFile, "无法检查 '%v'", path)
}
