package client

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"gallarr/internal/domain"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// requestToken derives the signing token for a single attempt. The service
// verifies it against the timestamp sent in the tokenparam header.
func requestToken(ts int64, secret string) string {
	return md5hex(fmt.Sprintf("%d%s", ts, secret))
}

// decodePayload reverses the app protocol response encoding: base64, then
// AES-256-ECB under a key derived from the request timestamp, then PKCS#7
// unpadding, then an optional zlib layer sniffed from the first plaintext
// byte. Every failure is a DecodeError; a payload that cannot be decoded
// never degrades to empty data.
func decodePayload(data string, ts int64, secret string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &domain.DecodeError{Reason: "base64", Err: err}
	}

	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, &domain.DecodeError{Reason: fmt.Sprintf("ciphertext length %d", len(raw))}
	}

	// md5 hex digest of ts+secret, 32 bytes, used as the AES-256 key
	block, err := aes.NewCipher([]byte(md5hex(fmt.Sprintf("%d%s", ts, secret))))
	if err != nil {
		return nil, &domain.DecodeError{Reason: "cipher", Err: err}
	}

	plain := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(plain[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, &domain.DecodeError{Reason: "padding", Err: err}
	}

	if len(plain) > 0 && plain[0] == 0x78 {
		zr, err := zlib.NewReader(bytes.NewReader(plain))
		if err != nil {
			return nil, &domain.DecodeError{Reason: "zlib", Err: err}
		}
		defer zr.Close()

		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, &domain.DecodeError{Reason: "zlib", Err: err}
		}
		plain = inflated
	}

	return plain, nil
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}

	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}

	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("inconsistent padding bytes")
		}
	}

	return b[:len(b)-n], nil
}
