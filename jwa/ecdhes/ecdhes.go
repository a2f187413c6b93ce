// Package ecdhes implements Key Agreement with Elliptic Curve Diffie-Hellman Ephemeral Static (ECDH-ES).
package ecdhes

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	_ "crypto/sha256" // for crypto.SHA256
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/go-jose-sdk/jose/jwa"
	"github.com/go-jose-sdk/jose/jwa/akw"
	"github.com/go-jose-sdk/jose/jwk"
	"github.com/go-jose-sdk/jose/keymanage"
	"github.com/go-jose-sdk/jose/x25519"
)

// headerAccessor is the subset of the JWE header this algorithm reads and
// writes: the "epk", "apu", "apv" Header Parameters it manages, and the
// "enc" Header Parameter it needs to size and label the derived key.
type headerAccessor interface {
	EncryptionAlgorithm() jwa.EncryptionAlgorithm
	EphemeralPublicKey() *jwk.Key
	SetEphemeralPublicKey(*jwk.Key)
	AgreementPartyUInfo() []byte
	AgreementPartyVInfo() []byte
}

var direct = &Algorithm{}

// New returns a new algorithm
// Elliptic Curve Diffie-Hellman Ephemeral Static key agreement using Concat KDF.
func New() keymanage.Algorithm {
	return direct
}

var a128kw = &Algorithm{
	alg:     jwa.ECDH_ES_A128KW,
	keySize: 16,
}

// NewA128KW returns a new algorithm ECDH-ES using Concat KDF and CEK wrapped with "A128KW".
func NewA128KW() keymanage.Algorithm {
	return a128kw
}

var a192kw = &Algorithm{
	alg:     jwa.ECDH_ES_A192KW,
	keySize: 24,
}

// NewA192KW returns a new algorithm ECDH-ES using Concat KDF and CEK wrapped with "A192KW".
func NewA192KW() keymanage.Algorithm {
	return a192kw
}

var a256kw = &Algorithm{
	alg:     jwa.ECDH_ES_A256KW,
	keySize: 32,
}

// NewA256KW returns a new algorithm ECDH-ES using Concat KDF and CEK wrapped with "A256KW".
func NewA256KW() keymanage.Algorithm {
	return a256kw
}

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES, New)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A128KW, NewA128KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A192KW, NewA192KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A256KW, NewA256KW)
}

var _ keymanage.Algorithm = (*Algorithm)(nil)

// Algorithm is the ECDH-ES family: plain key agreement when keySize is 0,
// or key agreement followed by AES Key Wrap of size keySize bytes.
type Algorithm struct {
	alg     jwa.KeyManagementAlgorithm
	keySize int
}

// NewKeyWrapper implements [github.com/go-jose-sdk/jose/keymanage.Algorithm].
func (alg *Algorithm) NewKeyWrapper(key keymanage.Key) keymanage.KeyWrapper {
	if alg.keySize == 0 {
		return &directKeyWrapper{
			priv: key.PrivateKey(),
			pub:  key.PublicKey(),
		}
	}
	return &kwKeyWrapper{
		alg:  alg,
		priv: key.PrivateKey(),
		pub:  key.PublicKey(),
	}
}

// agree performs the ECDH-ES key agreement step shared by both the direct
// and the key-wrapping variants. On the sender's side (no "epk" in the
// header yet) it generates a fresh ephemeral key pair matching the
// recipient's static public key and records it in the header. On the
// recipient's side (an "epk" is already present) it uses the recipient's
// static private key and the sender's ephemeral public key instead.
func agree(priv crypto.PrivateKey, pub crypto.PublicKey, h headerAccessor) ([]byte, error) {
	if epk := h.EphemeralPublicKey(); epk != nil {
		if priv == nil {
			return nil, errors.New("ecdhes: private key is required to unwrap")
		}
		return deriveZ(priv, epk.PublicKey())
	}
	if pub == nil {
		return nil, errors.New("ecdhes: public key is required to wrap")
	}
	ephPriv, epk, err := generateEphemeral(pub)
	if err != nil {
		return nil, err
	}
	h.SetEphemeralPublicKey(epk)
	return deriveZ(ephPriv, pub)
}

func generateEphemeral(pub crypto.PublicKey) (priv crypto.PrivateKey, epk *jwk.Key, err error) {
	switch pub := pub.(type) {
	case *ecdsa.PublicKey:
		key, err := ecdsa.GenerateKey(pub.Curve, rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		epk, err := jwk.NewPublicKey(&key.PublicKey)
		if err != nil {
			return nil, nil, err
		}
		return key, epk, nil
	case x25519.PublicKey:
		pubKey, privKey, err := x25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		epk, err := jwk.NewPublicKey(pubKey)
		if err != nil {
			return nil, nil, err
		}
		return privKey, epk, nil
	default:
		return nil, nil, fmt.Errorf("ecdhes: unsupported public key type: %T", pub)
	}
}

func deriveZ(priv crypto.PrivateKey, pub crypto.PublicKey) ([]byte, error) {
	switch priv := priv.(type) {
	case x25519.PrivateKey:
		pubkey, ok := pub.(x25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("ecdhes: want x25519.PublicKey but got %T", pub)
		}
		privECDH, err := priv.ECDH()
		if err != nil {
			return nil, err
		}
		pubECDH, err := pubkey.ECDH()
		if err != nil {
			return nil, err
		}
		return privECDH.ECDH(pubECDH)
	case *ecdsa.PrivateKey:
		pubkey, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("ecdhes: want *ecdsa.PublicKey but got %T", pub)
		}
		privECDH, err := priv.ECDH()
		if err != nil {
			return nil, err
		}
		pubECDH, err := pubkey.ECDH()
		if err != nil {
			return nil, err
		}
		return privECDH.ECDH(pubECDH)
	case *ecdh.PrivateKey:
		pubkey, ok := pub.(*ecdh.PublicKey)
		if !ok {
			return nil, fmt.Errorf("ecdhes: want *ecdh.PublicKey but got %T", pub)
		}
		return priv.ECDH(pubkey)
	default:
		return nil, fmt.Errorf("ecdhes: unknown private key type: %T", priv)
	}
}

// cekSizeForEnc returns the content encryption key size in bytes for the
// named encryption algorithm, as defined in RFC 7518 Section 5.
func cekSizeForEnc(enc jwa.EncryptionAlgorithm) int {
	switch enc {
	case jwa.A128CBC_HS256:
		return 32
	case jwa.A192CBC_HS384:
		return 48
	case jwa.A256CBC_HS512:
		return 64
	case jwa.A128GCM:
		return 16
	case jwa.A192GCM:
		return 24
	case jwa.A256GCM:
		return 32
	case jwa.XC20P:
		return 32
	default:
		return 0
	}
}

// deriveKey runs the Concat KDF (NIST SP 800-56A) to derive a keySize-byte
// key from the shared secret z.
func deriveKey(z, algID, apu, apv []byte, keySize int) ([]byte, error) {
	var pubinfo [4]byte
	bits := keySize * 8
	pubinfo[0] = byte(bits >> 24)
	pubinfo[1] = byte(bits >> 16)
	pubinfo[2] = byte(bits >> 8)
	pubinfo[3] = byte(bits)

	r := newKDF(crypto.SHA256, z, algID, apu, apv, pubinfo[:], []byte{})
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

var _ keymanage.KeyWrapper = (*directKeyWrapper)(nil)
var _ keymanage.KeyDeriver = (*directKeyWrapper)(nil)

// directKeyWrapper implements plain "ECDH-ES", where the derived key is
// used as the CEK directly instead of wrapping one.
type directKeyWrapper struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// WrapKey is unreachable in the normal message-encryption flow: jwe always
// prefers DeriveKey when it is available, since plain ECDH-ES can only
// produce a CEK equal to the derived key, not wrap an independently chosen
// one.
func (w *directKeyWrapper) WrapKey(cek []byte, opts any) ([]byte, error) {
	return nil, errors.New("ecdhes: plain ECDH-ES cannot wrap an existing CEK")
}

// UnwrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
// data is ignored: the CEK is the derived key itself.
func (w *directKeyWrapper) UnwrapKey(data []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdhes: invalid header type: %T", opts)
	}
	size := cekSizeForEnc(h.EncryptionAlgorithm())
	if size == 0 {
		return nil, fmt.Errorf("ecdhes: unsupported encryption algorithm: %s", h.EncryptionAlgorithm())
	}
	z, err := agree(w.priv, w.pub, h)
	if err != nil {
		return nil, err
	}
	return deriveKey(z, []byte(h.EncryptionAlgorithm().String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), size)
}

// DeriveKey implements [github.com/go-jose-sdk/jose/keymanage.KeyDeriver].
func (w *directKeyWrapper) DeriveKey(opts any) (cek, encryptedKey []byte, err error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, nil, fmt.Errorf("ecdhes: invalid header type: %T", opts)
	}
	size := cekSizeForEnc(h.EncryptionAlgorithm())
	if size == 0 {
		return nil, nil, fmt.Errorf("ecdhes: unsupported encryption algorithm: %s", h.EncryptionAlgorithm())
	}
	z, err := agree(w.priv, w.pub, h)
	if err != nil {
		return nil, nil, err
	}
	cek, err = deriveKey(z, []byte(h.EncryptionAlgorithm().String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), size)
	if err != nil {
		return nil, nil, err
	}
	return cek, []byte{}, nil
}

var _ keymanage.KeyWrapper = (*kwKeyWrapper)(nil)

// kwKeyWrapper implements the "ECDH-ES+A128KW"/"+A192KW"/"+A256KW" family:
// key agreement derives a key-encryption key, which then wraps an
// independently generated CEK with AES Key Wrap.
type kwKeyWrapper struct {
	alg  *Algorithm
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// WrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
func (w *kwKeyWrapper) WrapKey(cek []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdhes: invalid header type: %T", opts)
	}
	z, err := agree(w.priv, w.pub, h)
	if err != nil {
		return nil, err
	}
	kek, err := deriveKey(z, []byte(w.alg.alg.String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), w.alg.keySize)
	if err != nil {
		return nil, err
	}
	return akw.NewKeyWrapperRaw(kek).WrapKey(cek, opts)
}

// UnwrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
func (w *kwKeyWrapper) UnwrapKey(data []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdhes: invalid header type: %T", opts)
	}
	z, err := agree(w.priv, w.pub, h)
	if err != nil {
		return nil, err
	}
	kek, err := deriveKey(z, []byte(w.alg.alg.String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), w.alg.keySize)
	if err != nil {
		return nil, err
	}
	return akw.NewKeyWrapperRaw(kek).UnwrapKey(data, opts)
}

type kdf struct {
	hash hash.Hash

	z []byte

	// AlgorithmID
	alg []byte

	// PartyUInfo, PartyVInfo
	apu, apv []byte

	// SuppPubInfo, SuppPrivInfo
	pub, priv []byte

	round uint32
	n     int
	buf   []byte
}

func newKDF(h crypto.Hash, z, alg, apu, apv, pub, priv []byte) *kdf {
	hh := h.New()
	size := hh.Size()
	if size < 4 {
		size = 4
	}
	return &kdf{
		z:    z,
		hash: hh,
		alg:  alg,
		apu:  apu,
		apv:  apv,
		pub:  pub,
		priv: priv,
		buf:  make([]byte, size),
	}
}

func (r *kdf) Read(data []byte) (n int, err error) {
	if r.n == 0 {
		r.round++
		r.hash.Reset()

		r.putUint32(r.round)
		r.hash.Write(r.z)
		r.putUint32(uint32(len(r.alg)))
		r.hash.Write(r.alg)
		r.putUint32(uint32(len(r.apu)))
		r.hash.Write(r.apu)
		r.putUint32(uint32(len(r.apv)))
		r.hash.Write(r.apv)
		r.hash.Write(r.pub)
		r.hash.Write(r.priv)

		r.buf = r.hash.Sum(r.buf[:0])
		r.n = len(r.buf)
	}
	n = copy(data, r.buf[len(r.buf)-r.n:])
	r.n -= n
	return
}

func (r *kdf) putUint32(v uint32) {
	buf := r.buf[:4]
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
	r.hash.Write(buf)
}
