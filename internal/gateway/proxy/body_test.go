package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBodySelectsStrategy(t *testing.T) {
	b, err := DecodeBody("application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.IsType(t, JSONBody{}, b)

	b, err = DecodeBody("application/x-www-form-urlencoded; charset=UTF-8", []byte("a=1"))
	require.NoError(t, err)
	assert.IsType(t, FormBody{}, b)

	b, err = DecodeBody("text/xml", []byte("<a/>"))
	require.NoError(t, err)
	assert.IsType(t, RawBody{}, b)
	assert.Equal(t, "text/xml", b.ContentType())
}

func TestDecodeBodyRejectsBadJSON(t *testing.T) {
	_, err := DecodeBody("application/json", []byte(`{"a":`))
	assert.Error(t, err)
}

func TestRawBodyDefaultsToForm(t *testing.T) {
	b, err := DecodeBody("", []byte("x=1"))
	require.NoError(t, err)
	assert.Equal(t, ContentTypeForm, b.ContentType())
}

func TestJSONBodyKeepsLargeNumbers(t *testing.T) {
	b, err := DecodeBody("application/json", []byte(`{"id":12345678901234567890}`))
	require.NoError(t, err)
	data, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"id":12345678901234567890}`, string(data))
}

func TestFormBodyPreservesOrderAndEscaping(t *testing.T) {
	pairs, err := ParseForm("z=last+one&a=%26amp&a=2&flag")
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{Key: "z", Value: "last one"},
		{Key: "a", Value: "&amp"},
		{Key: "a", Value: "2"},
		{Key: "flag", Value: ""},
	}, pairs)

	data, err := FormBody{Pairs: pairs}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "z=last+one&a=%26amp&a=2&flag=", string(data))
}

func TestParseFormRejectsBadEscape(t *testing.T) {
	_, err := ParseForm("a=%zz")
	assert.Error(t, err)
}

func TestJSONBodyKeepsFieldOrder(t *testing.T) {
	b, err := DecodeBody("application/json", []byte("{\n  \"zeta\": 1,\n  \"alpha\": {\"y\": true, \"b\": null}\n}"))
	require.NoError(t, err)
	data, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"y":true,"b":null}}`, string(data))
}

func TestDecodeBodyRejectsTrailingData(t *testing.T) {
	_, err := DecodeBody("application/json", []byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}
