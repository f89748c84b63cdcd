package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_IsMatchesCode(t *testing.T) {
	err := TypeMismatch("LoadProperty", "integer", "object")

	assert.True(t, stderrors.Is(err, ErrTypeMismatch))
	assert.False(t, stderrors.Is(err, ErrUnknownBuiltin))
	assert.True(t, stderrors.Is(fmt.Errorf("wrapped: %w", err), ErrTypeMismatch))
	assert.Equal(t, "integer", err.Context["have"])
}

func TestStandardError_Format(t *testing.T) {
	err := InvalidProfile("templates", "empty")
	assert.NotEmpty(t, err.Caller)
	assert.Contains(t, err.Error(), "[CONFIG:INVALID_PROFILE] templates: empty")

	custom := NewStandardError(CategorySynthesis, CodeFinalized, "done", nil)
	assert.True(t, stderrors.Is(custom, ErrFinalized))
	assert.Contains(t, custom.Error(), "[SYNTHESIS:FINALIZED] done")
}

func TestSynthesisError(t *testing.T) {
	inner := UnknownBuiltin("foo")

	cases := []struct {
		err  *SynthesisError
		want string
	}{
		{&SynthesisError{Template: "MapTransition", Unit: "FunctionCallGenerator", Err: inner}, "template MapTransition, unit FunctionCallGenerator: "},
		{&SynthesisError{Template: "MapTransition", Err: inner}, "template MapTransition: "},
		{&SynthesisError{Unit: "GCGenerator", Err: inner}, "unit GCGenerator: "},
		{&SynthesisError{Err: inner}, "[TYPE:UNKNOWN_BUILTIN]"},
	}

	for _, c := range cases {
		assert.True(t, strings.HasPrefix(c.err.Error(), c.want), c.err.Error())
		assert.True(t, stderrors.Is(c.err, ErrUnknownBuiltin))
	}

	var se *StandardError
	assert.True(t, stderrors.As(cases[0].err, &se))
	assert.Equal(t, "foo", se.Context["name"])
}
