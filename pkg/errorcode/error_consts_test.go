package errorcode

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindEndorsement, "proposal rejected").WithDetails("peer1: status 500")
	wrapped := errors.Wrap(fmt.Errorf("outer: %w", base), "install failed")

	assert.Equal(t, KindEndorsement, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindEndorsement))
	assert.False(t, Is(wrapped, KindCommit))

	ce, ok := As(wrapped)
	if isOK := assert.True(t, ok); !isOK {
		t.FailNow()
	}
	assert.Equal(t, []string{"peer1: status 500"}, ce.Details)
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindFile, "unused"))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("exit status 2"), KindSubprocess, "script '%v' failed", "gen.sh").WithDetails("no such profile")
	assert.Equal(t, "SubprocessError: script 'gen.sh' failed [no such profile]: exit status 2", err.Error())
	assert.Equal(t, "exit status 2", errors.Cause(err).Error())
}
