// Package keymanage defines the interface of Key Management Algorithms.
package keymanage

import "crypto"

// Key is a key for wrapping or unwrapping Content Encryption Key (CEK).
type Key interface {
	PrivateKey() crypto.PrivateKey
	PublicKey() crypto.PublicKey
}

// Algorithm is an algorithm for wrapping or unwrapping Content Encryption Key (CEK).
type Algorithm interface {
	NewKeyWrapper(key Key) KeyWrapper
}

type KeyWrapper interface {
	WrapKey(cek []byte, opts any) (data []byte, err error)
	UnwrapKey(data []byte, opts any) (cek []byte, err error)
}

// KeyDeriver is implemented by key management algorithms that produce the
// Content Encryption Key directly instead of wrapping a CEK chosen by the
// caller: direct symmetric key use ("dir") and plain "ECDH-ES" key
// agreement, where the CEK must equal the shared/derived key material
// rather than a value generated before the algorithm runs.
//
// opts carries the JOSE header the algorithm may read from and write
// ephemeral parameters to (e.g. "epk"); it has the same dynamic type as the
// opts parameter of KeyWrapper.
type KeyDeriver interface {
	DeriveKey(opts any) (cek, encryptedKey []byte, err error)
}

// TagDependentKeyWrapper is implemented by key-wrapping algorithms whose key
// derivation depends on the content encryption authentication tag
// (ECDH-1PU+KW). PrepareHeader must run before content is encrypted, so
// header fields the algorithm writes (e.g. "epk") are fixed before the
// Additional Authenticated Data is computed; WrapKey/UnwrapKey then run
// after content encryption, with opts exposing the completed tag.
type TagDependentKeyWrapper interface {
	KeyWrapper
	PrepareHeader(opts any) error
}

func NewInvalidKeyWrapper(err error) KeyWrapper {
	return &invalidKeyWrapper{
		err: err,
	}
}

type invalidKeyWrapper struct {
	err error
}

func (w *invalidKeyWrapper) WrapKey(cek []byte, opts any) (data []byte, err error) {
	return nil, w.err
}

func (w *invalidKeyWrapper) UnwrapKey(data []byte, opts any) (cek []byte, err error) {
	return nil, w.err
}
