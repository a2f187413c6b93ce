// Package xc20p provides the XC20P (XChaCha20-Poly1305) content encryption
// algorithm used by the ECDH-1PU draft and several JOSE implementations as
// an alternative to the AES-GCM family.
package xc20p

import (
	"crypto/rand"
	"errors"

	"github.com/go-jose-sdk/jose/enc"
	"github.com/go-jose-sdk/jose/jwa"
	"golang.org/x/crypto/chacha20poly1305"
)

const keyLen = 32

var a = &algorithm{}

// New returns the XC20P content encryption algorithm.
func New() enc.Algorithm {
	return a
}

func init() {
	jwa.RegisterEncryptionAlgorithm(jwa.XC20P, New)
}

var _ enc.Algorithm = (*algorithm)(nil)

type algorithm struct{}

func (alg *algorithm) GenerateCEK() ([]byte, error) {
	cek := make([]byte, keyLen)
	if _, err := rand.Read(cek); err != nil {
		return nil, err
	}
	return cek, nil
}

func (alg *algorithm) GenerateIV() ([]byte, error) {
	iv := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (alg *algorithm) Decrypt(cek, iv, aad, ciphertext, authTag []byte) (plaintext []byte, err error) {
	if len(cek) != keyLen {
		return nil, errors.New("xc20p: invalid content encryption key")
	}
	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, errors.New("xc20p: invalid size of iv")
	}
	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)
	return aead.Open(nil, iv, sealed, aad)
}

func (alg *algorithm) Encrypt(cek, iv, aad, plaintext []byte) (ciphertext, authTag []byte, err error) {
	if len(cek) != keyLen {
		return nil, nil, errors.New("xc20p: invalid content encryption key")
	}
	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, nil, errors.New("xc20p: invalid size of iv")
	}
	sealed := aead.Seal(nil, iv, plaintext, aad)
	tagLen := aead.Overhead()
	ciphertext = sealed[:len(sealed)-tagLen]
	authTag = sealed[len(sealed)-tagLen:]
	return ciphertext, authTag, nil
}
