package client

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"gallarr/internal/domain"
)

const (
	testTS         = int64(1700000000)
	testTokenWant  = "1c6fa345eea2e10d5a30880ec2a7e0b3"
	testDataSecret = "185Hcomic3PAPP7R"
)

// encodePayload is the test-side inverse of decodePayload: pad, encrypt
// block by block, base64.
func encodePayload(t *testing.T, plain []byte, ts int64, secret string) string {
	t.Helper()

	block, err := aes.NewCipher([]byte(md5hex(fmt.Sprintf("%d%s", ts, secret))))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}

	return base64.StdEncoding.EncodeToString(out)
}

func deflate(t *testing.T, plain []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("deflate: %v", err)
	}

	return buf.Bytes()
}

func TestRequestToken(t *testing.T) {
	if got := requestToken(testTS, "18comicAPP"); got != testTokenWant {
		t.Errorf("requestToken = %s, want %s", got, testTokenWant)
	}

	if got := requestToken(testTS, "18comicAPPContent"); got != "8be524e958f97f014ddf2a570b011305" {
		t.Errorf("content token = %s", got)
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	want := []byte(`{"id": 438516, "name": "Sample Album"}`)

	data := encodePayload(t, want, testTS, testDataSecret)

	got, err := decodePayload(data, testTS, testDataSecret)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %q, want %q", got, want)
	}
}

func TestDecodePayloadInflates(t *testing.T) {
	want := []byte(`{"id": 438516, "series": []}`)

	data := encodePayload(t, deflate(t, want), testTS, testDataSecret)

	got, err := decodePayload(data, testTS, testDataSecret)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %q, want %q", got, want)
	}
}

func TestDecodePayloadWrongTimestamp(t *testing.T) {
	data := encodePayload(t, []byte(`{"id": 1}`), testTS, testDataSecret)

	// a different timestamp derives a different key, padding cannot survive
	if _, err := decodePayload(data, testTS+1, testDataSecret); err == nil {
		t.Fatal("expected decode failure with the wrong key")
	}
}

func TestDecodePayloadFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not base64", data: "!!!not-base64!!!"},
		{name: "empty", data: ""},
		{name: "partial block", data: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "garbage blocks", data: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePayload(tt.data, testTS, testDataSecret)
			if err == nil {
				t.Fatal("expected an error")
			}

			var derr *domain.DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("error is %T, want DecodeError", err)
			}
		})
	}
}

func TestDecodePayloadBadZlibFailsClosed(t *testing.T) {
	// plaintext that opens with the zlib header byte but is not a stream
	data := encodePayload(t, []byte{0x78, 0x9c, 0xFF, 0xFF}, testTS, testDataSecret)

	_, err := decodePayload(data, testTS, testDataSecret)
	if err == nil {
		t.Fatal("expected an error")
	}

	var derr *domain.DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("error is %T, want DecodeError", err)
	}
}
