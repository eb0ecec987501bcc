package timingutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageFileLogger(t *testing.T) {
	dir := t.TempDir()
	l, err := NewStageFileLogger("42", dir)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.NoError(t, l.LogStart("registerAndEnroll"))
	assert.NoError(t, l.LogEnd("registerAndEnroll", true))
	assert.NoError(t, l.LogStart("computeUpdate"))
	assert.NoError(t, l.LogEnd("computeUpdate", false))
	assert.NoError(t, l.Close())

	startLog, err := os.ReadFile(filepath.Join(dir, "start.log"))
	assert.NoError(t, err)
	endLog, err := os.ReadFile(filepath.Join(dir, "end.log"))
	assert.NoError(t, err)

	startLines := strings.Split(strings.TrimSpace(string(startLog)), "\n")
	endLines := strings.Split(strings.TrimSpace(string(endLog)), "\n")
	assert.Len(t, startLines, 2)
	assert.Len(t, endLines, 2)
	assert.True(t, strings.HasPrefix(startLines[0], "42~registerAndEnroll~"))
	assert.True(t, strings.HasSuffix(endLines[0], "~T"))
	assert.True(t, strings.HasSuffix(endLines[1], "~F"))
}

func TestNilStageFileLoggerIsNoop(t *testing.T) {
	var l *StageFileLogger
	assert.NoError(t, l.LogStart("any"))
	assert.NoError(t, l.LogEnd("any", true))
	assert.NoError(t, l.Close())
}
