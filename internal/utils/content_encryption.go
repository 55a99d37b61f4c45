package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	gcmNonceSize = 12
	gcmTagSize   = 16
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// EncryptContent encrypts message content with AES-256-GCM. The key is the
// SHA-256 of the passphrase and the output is base64(nonce | tag | ciphertext).
func EncryptContent(plaintext, passphrase string) (string, error) {
	aesgcm, err := contentCipher(passphrase)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptContent reverses EncryptContent.
func DecryptContent(encoded, passphrase string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(data) < gcmNonceSize+gcmTagSize {
		return "", ErrCiphertextTooShort
	}

	aesgcm, err := contentCipher(passphrase)
	if err != nil {
		return "", err
	}

	nonce := data[:gcmNonceSize]
	tag := data[gcmNonceSize : gcmNonceSize+gcmTagSize]
	ciphertext := data[gcmNonceSize+gcmTagSize:]

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt content: %w", err)
	}
	return string(plaintext), nil
}

func contentCipher(passphrase string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, gcmNonceSize)
}
