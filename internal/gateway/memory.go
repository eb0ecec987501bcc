package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
)

// ScriptHandler simulates a script. It may create files through `m`.
type ScriptHandler func(ctx context.Context, spec ScriptSpec, m *Memory) error

// Memory is an in-memory gateway for tests. Scripts are simulated by handlers keyed by their path.
type Memory struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]struct{}
	tempSeq int

	// Scripts 以脚本路径为键。未注册的脚本视为执行成功。
	Scripts map[string]ScriptHandler
	// WriteErrors 以文件路径为键，写入该路径时返回对应的错误。
	WriteErrors map[string]error
	// RenameError 不为 nil 时所有 Rename 调用都返回它。
	RenameError error

	// ScriptCalls 记录所有脚本调用，按调用顺序排列。
	ScriptCalls []ScriptSpec
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		files:       map[string][]byte{},
		dirs:        map[string]struct{}{},
		Scripts:     map[string]ScriptHandler{},
		WriteErrors: map[string]error{},
	}
}

func (m *Memory) RunScript(ctx context.Context, spec ScriptSpec) error {
	m.mu.Lock()
	m.ScriptCalls = append(m.ScriptCalls, spec)
	handler := m.Scripts[spec.Path]
	m.mu.Unlock()

	if err := scriptContextError(spec.Path, ctx.Err()); err != nil {
		return err
	}
	if handler == nil {
		return nil
	}

	return handler(ctx, spec, m)
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, errorcode.Wrap(os.ErrNotExist, errorcode.KindFile, "无法读取文件 '%v'", path)
	}

	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteFile(path string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.WriteErrors[path]; err != nil {
		return errorcode.Wrap(err, errorcode.KindFile, "无法写入文件 '%v'", path)
	}

	m.files[path] = append([]byte(nil), data...)
	m.addParentsLocked(filepath.Dir(path))
	return nil
}

func (m *Memory) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addParentsLocked(filepath.Clean(path))
	return nil
}

func (m *Memory) MkdirTemp(dir, pattern string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == "" {
		dir = os.TempDir()
	}
	m.tempSeq++
	path := filepath.Join(dir, fmt.Sprintf("%v%d", pattern, m.tempSeq))
	m.addParentsLocked(path)
	return path, nil
}

func (m *Memory) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RenameError != nil {
		return errorcode.Wrap(m.RenameError, errorcode.KindFile, "无法移动 '%v' 到 '%v'", oldPath, newPath)
	}

	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	if !m.existsLocked(oldPath) {
		return errorcode.Wrap(os.ErrNotExist, errorcode.KindFile, "无法移动 '%v' 到 '%v'", oldPath, newPath)
	}

	movedFiles := map[string][]byte{}
	for p, data := range m.files {
		if rel, ok := relativeTo(oldPath, p); ok {
			delete(m.files, p)
			movedFiles[filepath.Join(newPath, rel)] = data
		}
	}
	for p, data := range movedFiles {
		m.files[p] = data
	}

	var movedDirs []string
	for d := range m.dirs {
		if rel, ok := relativeTo(oldPath, d); ok {
			delete(m.dirs, d)
			movedDirs = append(movedDirs, filepath.Join(newPath, rel))
		}
	}
	for _, d := range movedDirs {
		m.dirs[d] = struct{}{}
	}
	m.addParentsLocked(filepath.Dir(newPath))
	return nil
}

func (m *Memory) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	for p := range m.files {
		if _, ok := relativeTo(path, p); ok {
			delete(m.files, p)
		}
	}
	for d := range m.dirs {
		if _, ok := relativeTo(path, d); ok {
			delete(m.dirs, d)
		}
	}
	return nil
}

func (m *Memory) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.existsLocked(filepath.Clean(path)), nil
}

// Files lists all file paths under `dir` in lexical order.
func (m *Memory) Files(dir string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir = filepath.Clean(dir)
	var ret []string
	for p := range m.files {
		if _, ok := relativeTo(dir, p); ok {
			ret = append(ret, p)
		}
	}
	sort.Strings(ret)
	return ret
}

// ScriptPaths lists the paths of the invoked scripts in order.
func (m *Memory) ScriptPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]string, len(m.ScriptCalls))
	for i, call := range m.ScriptCalls {
		ret[i] = call.Path
	}
	return ret
}

func (m *Memory) existsLocked(path string) bool {
	if _, ok := m.files[path]; ok {
		return true
	}
	_, ok := m.dirs[path]
	return ok
}

func (m *Memory) addParentsLocked(dir string) {
	for {
		m.dirs[dir] = struct{}{}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// relativeTo reports whether `p` is `base` or lies under it.
func relativeTo(base, p string) (string, bool) {
	if p == base {
		return ".", true
	}
	prefix := base + string(filepath.Separator)
	if base == string(filepath.Separator) {
		prefix = base
	}
	if strings.HasPrefix(p, prefix) {
		return strings.TrimPrefix(p, prefix), true
	}
	return "", false
}
