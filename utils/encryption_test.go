package utils

import (
	"testing"

	"brokercrm/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	config.AppConfig.DocumentKey = "0123456789abcdef0123456789abcdef"
	defer func() { config.AppConfig.DocumentKey = "" }()

	plaintext := []byte("policy declaration page contents")

	ciphertext, encrypted, err := EncryptBytes(plaintext)
	require.NoError(t, err)
	assert.True(t, encrypted)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := DecryptBytes(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptWithoutKeyIsPassthrough(t *testing.T) {
	config.AppConfig.DocumentKey = ""

	plaintext := []byte("unencrypted upload")
	stored, encrypted, err := EncryptBytes(plaintext)
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, plaintext, stored)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	config.AppConfig.DocumentKey = "0123456789abcdef0123456789abcdef"
	defer func() { config.AppConfig.DocumentKey = "" }()

	_, err := DecryptBytes([]byte("tiny"))
	assert.Error(t, err)
}
