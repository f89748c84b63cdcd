package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_TypeConversion(t *testing.T) {
	spec := Spec{
		Kind:   "function",
		Params: []Spec{{Kind: "string"}, {Kind: "integer"}},
		Returns: &Spec{
			Kind: "undefined",
		},
	}

	typ, err := spec.Type()
	require.NoError(t, err)
	assert.True(t, typ.Equal(Function(NewSignature(Undefined, String, Integer))))

	back, err := typ.Spec().Type()
	require.NoError(t, err)
	assert.True(t, typ.Equal(back))
}

func TestSpec_Errors(t *testing.T) {
	cases := map[string]Spec{
		"unknown kind":          {Kind: "bigint"},
		"element on object":     {Kind: "object", Element: "Uint8Array"},
		"bad element":           {Kind: "typedarray", Element: "Uint128Array"},
		"signature on string":   {Kind: "string", Params: []Spec{{Kind: "integer"}}},
		"bad nested param kind": {Kind: "function", Params: []Spec{{Kind: "?"}}},
	}

	for name, s := range cases {
		_, err := s.Type()
		assert.Error(t, err, name)
	}
}

func TestType_JSONRoundTrip(t *testing.T) {
	in := []Type{
		Anything,
		Object("x", "a"),
		TypedArray(ElementFloat32),
		Constructor(NewSignature(Host("FakeDOMObject"))),
		AnyFunction(),
		Collection("WeakMap"),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Type
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))

	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "%s != %s", in[i], out[i])
	}
}
