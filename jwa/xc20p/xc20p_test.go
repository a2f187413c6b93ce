package xc20p

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

func TestRoundTrip(t *testing.T) {
	plaintext := []byte("The true sign of intelligence is not knowledge but imagination.")
	aad := []byte("additional authenticated data")

	alg := New()
	cek, err := alg.GenerateCEK()
	if err != nil {
		t.Fatal(err)
	}
	if len(cek) != keyLen {
		t.Errorf("unexpected cek size: want %d, got %d", keyLen, len(cek))
	}
	iv, err := alg.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	if len(iv) != chacha20poly1305.NonceSizeX {
		t.Errorf("unexpected iv size: want %d, got %d", chacha20poly1305.NonceSizeX, len(iv))
	}

	ciphertext, authTag, err := alg.Encrypt(cek, iv, aad, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext must not match plaintext")
	}

	got, err := alg.Decrypt(cek, iv, aad, ciphertext, authTag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("want %#v, got %#v", plaintext, got)
	}
}

func TestDecrypt_tamperedTag(t *testing.T) {
	alg := New()
	cek, err := alg.GenerateCEK()
	if err != nil {
		t.Fatal(err)
	}
	iv, err := alg.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, authTag, err := alg.Encrypt(cek, iv, []byte("aad"), []byte("plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	authTag[0] ^= 0xff
	if _, err := alg.Decrypt(cek, iv, []byte("aad"), ciphertext, authTag); err == nil {
		t.Error("want error, but not")
	}
}

func TestGenerateIV_unique(t *testing.T) {
	alg := New()
	iv0, err := alg.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	iv1, err := alg.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(iv0, iv1) {
		t.Errorf("iv must not match: %x, %x", iv0, iv1)
	}
}
