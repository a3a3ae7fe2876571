package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"brokercrm/config"
)

// EncryptBytes encrypts document bytes at rest with AES-CFB. When no document
// key is configured the input is returned as-is and the caller records the
// file as unencrypted.
func EncryptBytes(plaintext []byte) ([]byte, bool, error) {
	key := []byte(config.AppConfig.DocumentKey)
	if len(key) == 0 {
		return plaintext, false, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, false, err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, false, err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], plaintext)
	return ciphertext, true, nil
}

// DecryptBytes reverses EncryptBytes.
func DecryptBytes(ciphertext []byte) ([]byte, error) {
	key := []byte(config.AppConfig.DocumentKey)
	if len(key) == 0 {
		return nil, errors.New("no document encryption key configured")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	copy(data, ciphertext[aes.BlockSize:])

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, data)
	return data, nil
}
