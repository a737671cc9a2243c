package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,null]}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"ratio": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-integer")
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as D83D DE00, which sorts before U+E000 in UTF-16
	// even though it is the larger code point.
	got, err := MarshalCanonical(map[string]int{"\uE000": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uE000\":1}", string(got))
}

func TestHash_IgnoresSessionMetadata(t *testing.T) {
	a := newTestDoc()
	b := newTestDoc()
	b.Revision = 7
	b.PersistedAt = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestHash_DetectsContentChange(t *testing.T) {
	a := newTestDoc()
	b := newTestDoc()
	b.Fields[0].Label = "Full name"

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHash_NilAndEmptyFields(t *testing.T) {
	ha, err := Hash(Document{ID: "d"})
	require.NoError(t, err)
	hb, err := Hash(Document{ID: "d", Fields: []Field{}})
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHash_StableAcrossCalls(t *testing.T) {
	doc := newTestDoc()
	doc.Design.Custom = map[string]string{"z": "1", "a": "2", "m": "3"}

	first, err := Hash(doc)
	require.NoError(t, err)
	for range 20 {
		h, err := Hash(doc)
		require.NoError(t, err)
		require.Equal(t, first, h)
	}
}
