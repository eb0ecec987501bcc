package archive

import (
	"context"
	"path/filepath"
	"strings"

	"gitee.com/czyczk/fabric-netadmin/internal/gateway"
	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
)

// FileArchive writes snapshots into a directory through the gateway. The location of a snapshot is its path.
type FileArchive struct {
	Dir     string
	Gateway gateway.Gateway
}

// NewFileArchive creates an archive that writes into `dir`.
func NewFileArchive(dir string, gw gateway.Gateway) *FileArchive {
	return &FileArchive{Dir: dir, Gateway: gw}
}

func (a *FileArchive) Name() string {
	return "file-" + a.Dir
}

func (a *FileArchive) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if name == "" || strings.Contains(name, "..") {
		return "", errorcode.New(errorcode.KindBadRequest, "归档名 '%v' 无效", name)
	}

	path := filepath.Join(a.Dir, name)
	if err := a.Gateway.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := a.Gateway.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}

func (a *FileArchive) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(a.Dir, location)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errorcode.New(errorcode.KindNotFound, "'%v' 不在归档目录中", location)
	}

	return a.Gateway.ReadFile(location)
}
