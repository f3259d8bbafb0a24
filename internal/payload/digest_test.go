package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_Example(t *testing.T) {
	data, err := Canonical(Example{Field1: [4]float32{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, `{"field1":[1,2,3,4]}`, string(data))
}

func TestCanonical_SortsKeys(t *testing.T) {
	data, err := Canonical(map[string]any{"b": 1, "a": "x", "c": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,null]}`, string(data))
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := Canonical(map[string]any{"s": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a&b>"}`, string(data))
}

func TestCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point.
	decomposed := "é"
	composed := "é"

	a, err := Canonical(map[string]any{"k": decomposed})
	require.NoError(t, err)
	b, err := Canonical(map[string]any{"k": composed})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 sorts after U+FF61 in UTF-8 byte order but before it in UTF-16,
	// because the emoji encodes as a surrogate pair starting at 0xD83D.
	data, err := Canonical(map[string]any{"\U0001F600": 1, "｡": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"｡\":2}", string(data))
}

func TestDigest_StableAndDistinct(t *testing.T) {
	a := Example{Field1: [4]float32{1, 2, 3, 4}}
	b := Example{Field1: [4]float32{4, 3, 2, 1}}

	d1, err := Digest(a)
	require.NoError(t, err)
	d2, err := Digest(a)
	require.NoError(t, err)
	d3, err := Digest(b)
	require.NoError(t, err)

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}
