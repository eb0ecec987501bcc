package archive

import "context"

// IArchive stores config snapshots produced by a workflow. Archiving is best effort: callers log failures and go on.
type IArchive interface {
	// Name 返回归档后端的名字，用于日志。
	Name() string
	// Put 保存数据并返回可用于取回的位置（文件路径或 CID）。
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
}
