package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	errBusy := NewErrorWithKey(409, "RUN_IN_PROGRESS", "run in progress")
	wrapped := fmt.Errorf("start run: %w", errBusy)

	assert.ErrorIs(t, wrapped, errBusy)
	assert.ErrorIs(t, wrapped, NewError(409, "run in progress"))
	assert.False(t, errors.Is(wrapped, NewError(400, "run in progress")))

	var respErr *Error
	require.True(t, errors.As(wrapped, &respErr))
	assert.Equal(t, 409, respErr.Code)
	assert.Equal(t, "RUN_IN_PROGRESS", respErr.Key)
	assert.Equal(t, "run in progress", respErr.Error())
}
