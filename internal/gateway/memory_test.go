package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/stretchr/testify/assert"
)

func TestMemoryRenameMovesTree(t *testing.T) {
	m := NewMemory()
	staging, _ := m.MkdirTemp("/work", "msp-")
	assert.NoError(t, m.WriteFile(staging+"/keystore/abc_sk", []byte("key"), 0600))
	assert.NoError(t, m.WriteFile(staging+"/signcerts/cert.pem", []byte("cert"), 0644))

	assert.NoError(t, m.Rename(staging, "/peers/Org3MSP/msp"))
	assert.Equal(t, []string{"/peers/Org3MSP/msp/keystore/abc_sk", "/peers/Org3MSP/msp/signcerts/cert.pem"}, m.Files("/peers"))
	assert.Empty(t, m.Files(staging))

	exists, _ := m.Exists("/peers/Org3MSP/msp/keystore")
	assert.True(t, exists)
}

func TestMemoryScriptHandlers(t *testing.T) {
	m := NewMemory()
	m.Scripts["gen.sh"] = func(ctx context.Context, spec ScriptSpec, m *Memory) error {
		return m.WriteFile("/artifacts/"+spec.Args[0]+".tx", []byte("tx"), 0644)
	}
	m.Scripts["broken.sh"] = func(ctx context.Context, spec ScriptSpec, m *Memory) error {
		return errorcode.New(errorcode.KindSubprocess, "exit status 1")
	}

	assert.NoError(t, m.RunScript(context.Background(), ScriptSpec{Path: "gen.sh", Args: []string{"ch1"}}))
	data, err := m.ReadFile("/artifacts/ch1.tx")
	assert.NoError(t, err)
	assert.Equal(t, "tx", string(data))

	err = m.RunScript(context.Background(), ScriptSpec{Path: "broken.sh"})
	assert.Equal(t, errorcode.KindSubprocess, errorcode.KindOf(err))
	assert.NoError(t, m.RunScript(context.Background(), ScriptSpec{Path: "unknown.sh"}))
	assert.Equal(t, []string{"gen.sh", "broken.sh", "unknown.sh"}, m.ScriptPaths())
}

func TestMemoryWriteErrors(t *testing.T) {
	m := NewMemory()
	m.WriteErrors["/a/b"] = fmt.Errorf("disk full")

	err := m.WriteFile("/a/b", []byte("x"), 0644)
	assert.Equal(t, errorcode.KindFile, errorcode.KindOf(err))
	exists, _ := m.Exists("/a/b")
	assert.False(t, exists)
}

func TestMemoryRunScriptContextErrors(t *testing.T) {
	m := NewMemory()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.RunScript(cancelled, ScriptSpec{Path: "gen.sh"})
	assert.Equal(t, errorcode.KindSubprocess, errorcode.KindOf(err))

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err = m.RunScript(expired, ScriptSpec{Path: "gen.sh"})
	assert.Equal(t, errorcode.KindSubprocessTimeout, errorcode.KindOf(err))
}
