package errx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testErrors = errx.NewRegistry("TEST")

var errBroken = testErrors.Register("BROKEN", errx.TypeExternal, 0, "Something broke")

func TestRegistry_PrefixesCodeAndDefaultsStatus(t *testing.T) {
	e := testErrors.New(errBroken)

	assert.Equal(t, "TEST_BROKEN", e.Code)
	assert.Equal(t, 502, e.HTTPStatus)
	assert.Equal(t, errx.TypeExternal, e.Type)

	got, ok := testErrors.Get("BROKEN")
	require.True(t, ok)
	assert.Same(t, errBroken, got)
}

func TestError_IsMatchesByCode(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	e := testErrors.NewWithCause(errBroken, cause).WithDetail("attempt", 2)
	wrapped := fmt.Errorf("outer: %w", e)

	assert.True(t, errors.Is(wrapped, testErrors.New(errBroken)))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "TEST_BROKEN", errx.CodeOf(wrapped))
	assert.True(t, errx.IsType(wrapped, errx.TypeExternal))
	assert.Equal(t, 2, e.Details["attempt"])
}

func TestWrap_PreservesCodeAndDetails(t *testing.T) {
	inner := testErrors.New(errBroken).WithDetail("queue", "default")
	outer := errx.Wrap(inner, "enqueue failed", errx.TypeInternal)

	assert.Equal(t, "TEST_BROKEN", outer.Code)
	assert.Equal(t, "default", outer.Details["queue"])
	assert.Equal(t, errx.TypeInternal, errx.TypeOf(outer))
	assert.Nil(t, errx.Wrap(nil, "nothing", errx.TypeInternal))
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, errx.TypeInternal, errx.TypeOf(errors.New("plain")))
	assert.False(t, errx.IsType(nil, errx.TypeInternal))
	assert.Equal(t, "", errx.CodeOf(errors.New("plain")))
}
