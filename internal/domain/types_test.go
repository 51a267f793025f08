package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValidate(t *testing.T) {
	assert.NoError(t, Session("abc_DEF-123").Validate())
	assert.Error(t, Session("").Validate())
	assert.Error(t, Session("../etc").Validate())
	assert.Error(t, Session("a/b").Validate())
}

func TestJPEGPayloadRoundTrip(t *testing.T) {
	p := NewJPEGPayload([]byte{0xFF, 0xD8, 0xFF})
	assert.Equal(t, "image/jpeg", p.MimeType())

	data, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}

func TestPayloadBytesRejectsPlainString(t *testing.T) {
	_, err := Payload("not a data url").Bytes()
	assert.Error(t, err)
}
