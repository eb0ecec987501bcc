package gateway

import (
	"context"
	"os"
	"time"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/pkg/errors"
)

// ScriptSpec describes one external script invocation.
type ScriptSpec struct {
	// Path 为脚本路径。脚本以 `sh <Path> <Args...>` 的方式执行。
	Path string
	Args []string
	// Dir 为工作目录。为空时使用当前进程的工作目录。
	Dir string
	// Timeout 为 0 时仅受 ctx 约束。
	Timeout time.Duration
}

// Gateway is the only way the orchestrator touches the host: running scripts and reading or writing files.
type Gateway interface {
	// RunScript 执行脚本。非零退出返回 SubprocessError（详情中含 stderr），超时返回 SubprocessTimeout，调用方取消返回 SubprocessError。
	RunScript(ctx context.Context, spec ScriptSpec) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	// MkdirTemp 在 dir 下创建一个以 pattern 为前缀的临时目录并返回其路径。
	MkdirTemp(dir, pattern string) (string, error)
	Rename(oldPath, newPath string) error
	RemoveAll(path string) error
	Exists(path string) (bool, error)
}

// scriptContextError classifies the error of a script whose context is done. Only an expired deadline is a timeout.
func scriptContextError(path string, ctxErr error) error {
	if ctxErr == nil {
		return nil
	}

	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return errorcode.Wrap(ctxErr, errorcode.KindSubprocessTimeout, "脚本 '%v' 未在限定时间内完成", path)
	}
	return errorcode.Wrap(ctxErr, errorcode.KindSubprocess, "脚本 '%v' 已被取消", path)
}
