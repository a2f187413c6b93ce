// Package dir implements a Key Wrapping algorithm
// that is direct use of a shared symmetric key as the CEK.
package dir

import (
	"fmt"

	"github.com/go-jose-sdk/jose/jwa"
	"github.com/go-jose-sdk/jose/keymanage"
)

var alg = &Algorithm{}

func New() keymanage.Algorithm {
	return alg
}

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.Direct, New)
}

var _ keymanage.Algorithm = (*Algorithm)(nil)

type Algorithm struct{}

// NewKeyWrapper implements [github.com/go-jose-sdk/jose/keymanage.Algorithm].
func (alg *Algorithm) NewKeyWrapper(key keymanage.Key) keymanage.KeyWrapper {
	cek, ok := key.PrivateKey().([]byte)
	if !ok {
		return keymanage.NewInvalidKeyWrapper(fmt.Errorf("dir: invalid key type: %T", key.PrivateKey()))
	}
	return &KeyWrapper{
		cek: cek,
	}
}

var _ keymanage.KeyWrapper = (*KeyWrapper)(nil)
var _ keymanage.KeyDeriver = (*KeyWrapper)(nil)

type KeyWrapper struct {
	cek []byte
}

// WrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
// The CEK of a "dir" message is the shared key itself, so there is no
// data to emit as the encrypted key.
func (w *KeyWrapper) WrapKey(cek []byte, opts any) ([]byte, error) {
	return []byte{}, nil
}

// UnwrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
func (w *KeyWrapper) UnwrapKey(data []byte, opts any) ([]byte, error) {
	return w.cek, nil
}

// DeriveKey implements [github.com/go-jose-sdk/jose/keymanage.KeyDeriver].
func (w *KeyWrapper) DeriveKey(opts any) (cek, encryptedKey []byte, err error) {
	return w.cek, []byte{}, nil
}
