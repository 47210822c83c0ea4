package apperrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("send: %w", ErrSelfConversation)
	assert.Equal(t, CodeSelfTargetInvalid, CodeOf(err))
	assert.ErrorIs(t, err, ErrSelfConversation)
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestModeratedCarriesReasonAndExpiry(t *testing.T) {
	until := time.Now().Add(time.Hour)
	err := Moderated("suspended", &until)

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, CodeModerated, appErr.Code)
	assert.Equal(t, "suspended", appErr.Reason)
	assert.Equal(t, &until, appErr.Until)
}

func TestIsMatchesByCode(t *testing.T) {
	assert.ErrorIs(t, NotFound("other text"), ErrMessageAbsent)
	assert.NotErrorIs(t, NotFound("x"), ErrNotSender)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("load failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load failed: db down", err.Error())
}
