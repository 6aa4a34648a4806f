package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindNotFound, "store not found")
	assert.Equal(t, "NotFound: store not found", err.Error())

	base := Wrap(KindUploadFailed, errors.New("quota exceeded"), "")
	staged := base.AtStage("upload")
	assert.Equal(t, "UploadFailed (upload): quota exceeded", staged.Error())
	assert.Empty(t, base.Stage, "AtStage must not mutate the receiver")
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(KindIOError, "disk full")
	wrapped := fmt.Errorf("ingest: %w", base)

	assert.Equal(t, KindIOError, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindIOError))
	assert.False(t, Is(wrapped, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindGenerationFailed, cause, "")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection reset", err.Message)
}
