package secret

import (
	"errors"
	"testing"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("unit-test-master-key")
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	encoded, err := c.Encrypt("SG.api-key-value")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if encoded == "SG.api-key-value" {
		t.Fatalf("cipher text must differ from plain text")
	}
	again, _ := c.Encrypt("SG.api-key-value")
	if again == encoded {
		t.Fatalf("nonce should make cipher texts differ")
	}
	plain, err := c.Decrypt(encoded)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plain != "SG.api-key-value" {
		t.Fatalf("unexpected plain text: %s", plain)
	}
}

func TestCipherRejectsForeignKey(t *testing.T) {
	a, _ := NewCipher("key-a")
	b, _ := NewCipher("key-b")
	encoded, _ := a.Encrypt("secret")
	if _, err := b.Decrypt(encoded); !errors.Is(err, ErrInvalidCipherText) {
		t.Fatalf("expected ErrInvalidCipherText, got %v", err)
	}
	if _, err := b.Decrypt("%%%"); !errors.Is(err, ErrInvalidCipherText) {
		t.Fatalf("expected ErrInvalidCipherText for bad base64, got %v", err)
	}
}

func TestCipherEmptyValues(t *testing.T) {
	if _, err := NewCipher("  "); !errors.Is(err, ErrEmptySecretKey) {
		t.Fatalf("expected ErrEmptySecretKey, got %v", err)
	}
	c, _ := NewCipher("k")
	if out, err := c.Encrypt(""); err != nil || out != "" {
		t.Fatalf("empty plain text should stay empty, got %q %v", out, err)
	}
}
