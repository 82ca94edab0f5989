package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(b byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		errorMsg string
	}{
		{"empty key", "", "encryption key is empty"},
		{"invalid base64", "not-valid-base64!@#$", "base64 decode failed"},
		{"short key", base64.StdEncoding.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
		{"valid", testKey(1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESEncryptor(tt.key)
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.errorMsg)
			}
		})
	}
}

func TestFromKeyEmptyDisablesEncryption(t *testing.T) {
	enc, err := FromKey("")
	if err != nil || enc != nil {
		t.Errorf("FromKey(\"\") = %v, %v; want nil, nil", enc, err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(7))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"", "oauth-token-abc", strings.Repeat("x", 1024)} {
		ct, err := EncryptString(enc, s)
		if err != nil {
			t.Fatalf("EncryptString(%q): %v", s, err)
		}
		if s != "" && ct == s {
			t.Errorf("ciphertext equals plaintext")
		}
		pt, err := DecryptString(enc, ct)
		if err != nil {
			t.Fatalf("DecryptString: %v", err)
		}
		if pt != s {
			t.Errorf("round trip = %q, want %q", pt, s)
		}
	}
}

func TestNonceIsRandom(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(3))
	a, _ := EncryptString(enc, "same")
	b, _ := EncryptString(enc, "same")
	if a == b {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptRejectsTamperingAndWrongKey(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(1))
	other, _ := NewAESEncryptor(testKey(2))
	ct, err := enc.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(ct); err == nil {
		t.Error("wrong key should fail")
	}
	ct[len(ct)-1] ^= 0xff
	if _, err := enc.Decrypt(ct); err == nil {
		t.Error("tampered ciphertext should fail")
	}
	if _, err := enc.Decrypt([]byte("short")); err == nil {
		t.Error("short ciphertext should fail")
	}
}
