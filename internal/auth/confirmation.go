package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfirmationToken = errors.New("invalid confirmation token")

// ConfirmationCipher turns usernames into the hex tokens embedded in email
// verification links and back.
//
// Every token is encrypted with the same configured IV, so equal usernames
// always produce equal tokens. This keeps links issued by earlier deployments
// valid; it is not a property to rely on for secrecy.
type ConfirmationCipher struct {
	block cipher.Block
	mode  string
	iv    []byte
}

// NewConfirmationCipher accepts aes-{128,192,256}-{cbc,ctr}. The key is the
// raw secret bytes and must match the algorithm's key size; ivHex must decode
// to one AES block.
func NewConfirmationCipher(algorithm, secret, ivHex string) (*ConfirmationCipher, error) {
	keySize, mode, err := parseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if len(secret) != keySize {
		return nil, fmt.Errorf("%s needs a %d byte key, got %d", algorithm, keySize, len(secret))
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("initialization vector is not hex: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("initialization vector must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &ConfirmationCipher{block: block, mode: mode, iv: iv}, nil
}

func parseAlgorithm(algorithm string) (keySize int, mode string, err error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(algorithm)), "-")
	if len(parts) != 3 || parts[0] != "aes" {
		return 0, "", fmt.Errorf("unsupported confirmation algorithm %q", algorithm)
	}

	switch parts[1] {
	case "128":
		keySize = 16
	case "192":
		keySize = 24
	case "256":
		keySize = 32
	default:
		return 0, "", fmt.Errorf("unsupported confirmation algorithm %q", algorithm)
	}

	switch parts[2] {
	case "cbc", "ctr":
		return keySize, parts[2], nil
	default:
		return 0, "", fmt.Errorf("unsupported confirmation algorithm %q", algorithm)
	}
}

func (c *ConfirmationCipher) Encrypt(username string) string {
	plain := []byte(username)

	if c.mode == "ctr" {
		out := make([]byte, len(plain))
		cipher.NewCTR(c.block, c.iv).XORKeyStream(out, plain)
		return hex.EncodeToString(out)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out)
}

func (c *ConfirmationCipher) Decrypt(token string) (string, error) {
	data, err := hex.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidConfirmationToken, err)
	}

	if c.mode == "ctr" {
		out := make([]byte, len(data))
		cipher.NewCTR(c.block, c.iv).XORKeyStream(out, data)
		return string(out), nil
	}

	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad length %d", ErrInvalidConfirmationToken, len(data))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidConfirmationToken)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidConfirmationToken)
		}
	}
	return data[:len(data)-n], nil
}
