package controller

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// getPeers reads the comma separated `peers` query parameter. An empty result means the configured default peers.
func getPeers(c *gin.Context) []string {
	var ret []string
	for _, peer := range strings.Split(c.Query("peers"), ",") {
		if peer = strings.TrimSpace(peer); peer != "" {
			ret = append(ret, peer)
		}
	}

	return ret
}

// getArgs reads the repeated `args` query parameters. `defaultArgs` is used if there's none.
func getArgs(c *gin.Context, defaultArgs []string) [][]byte {
	args, ok := c.GetQueryArray("args")
	if !ok {
		args = defaultArgs
	}

	ret := make([][]byte, len(args))
	for i, arg := range args {
		ret[i] = []byte(arg)
	}

	return ret
}
