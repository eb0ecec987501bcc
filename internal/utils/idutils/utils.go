package idutils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

var (
	sfNode     *snowflake.Node
	sfNodeErr  error
	sfNodeOnce sync.Once
)

func getNode() (*snowflake.Node, error) {
	sfNodeOnce.Do(func() {
		sfNode, sfNodeErr = snowflake.NewNode(1)
	})

	return sfNode, sfNodeErr
}

// GenerateSnowflakeId generates an ID for a workflow record.
func GenerateSnowflakeId() (int64, error) {
	node, err := getNode()
	if err != nil {
		return 0, errors.Wrap(err, "无法生成 ID")
	}

	return node.Generate().Int64(), nil
}
