// Package ecdh1pu implements Key Agreement with Elliptic Curve Diffie-Hellman
// One-Pass Unified Model (ECDH-1PU), draft-madden-jose-ecdh-1pu. Unlike
// ECDH-ES, the derived key authenticates the sender: the shared secret is the
// concatenation of an ephemeral-static agreement (as in ECDH-ES) and a
// static-static agreement between the sender's and the recipient's identity
// keys, so a recipient who can verify the result knows which sender produced
// it.
package ecdh1pu

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

// New returns a new algorithm for plain "ECDH-1PU" key agreement using
// Concat KDF, where the derived key is used as the CEK directly.
func New() keymanage.Algorithm {
	return direct
}

var a128kw = &Algorithm{
	alg:     jwa.ECDH_1PU_A128KW,
	keySize: 16,
}

// NewA128KW returns a new algorithm ECDH-1PU using Concat KDF and CEK wrapped with "A128KW".
func NewA128KW() keymanage.Algorithm {
	return a128kw
}

var a192kw = &Algorithm{
	alg:     jwa.ECDH_1PU_A192KW,
	keySize: 24,
}

// NewA192KW returns a new algorithm ECDH-1PU using Concat KDF and CEK wrapped with "A192KW".
func NewA192KW() keymanage.Algorithm {
	return a192kw
}

var a256kw = &Algorithm{
	alg:     jwa.ECDH_1PU_A256KW,
	keySize: 32,
}

// NewA256KW returns a new algorithm ECDH-1PU using Concat KDF and CEK wrapped with "A256KW".
func NewA256KW() keymanage.Algorithm {
	return a256kw
}

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_1PU, New)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_1PU_A128KW, NewA128KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_1PU_A192KW, NewA192KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_1PU_A256KW, NewA256KW)
}

var _ keymanage.Algorithm = (*Algorithm)(nil)

// Algorithm is the ECDH-1PU family: plain key agreement when keySize is 0,
// or key agreement followed by AES Key Wrap of size keySize bytes.
type Algorithm struct {
	alg     jwa.KeyManagementAlgorithm
	keySize int
}

// NewKeyWrapper implements [github.com/go-jose-sdk/jose/keymanage.Algorithm].
// ECDH-1PU always authenticates a sender, so a single key is never enough;
// use [Algorithm.NewSenderKeyWrapper] instead.
func (alg *Algorithm) NewKeyWrapper(key keymanage.Key) keymanage.KeyWrapper {
	return keymanage.NewInvalidKeyWrapper(errors.New("ecdh1pu: a sender key is required; use NewSenderKeyWrapper"))
}

// NewSenderKeyWrapper builds a key wrapper for ECDH-1PU key agreement.
// sender and recipient are the static key pairs of the two parties: each
// side of a conversation supplies its own private key and the other party's
// public key, so the same call shape works for both wrapping and
// unwrapping.
func (alg *Algorithm) NewSenderKeyWrapper(sender, recipient keymanage.Key) keymanage.KeyWrapper {
	w := &senderKeys{
		senderPriv:    sender.PrivateKey(),
		senderPub:     sender.PublicKey(),
		recipientPriv: recipient.PrivateKey(),
		recipientPub:  recipient.PublicKey(),
	}
	if alg.keySize == 0 {
		return &directKeyWrapper{senderKeys: w}
	}
	return &kwKeyWrapper{alg: alg, senderKeys: w}
}

type senderKeys struct {
	senderPriv    crypto.PrivateKey
	senderPub     crypto.PublicKey
	recipientPriv crypto.PrivateKey
	recipientPub  crypto.PublicKey

	// ephPriv caches the ephemeral private key generated by PrepareHeader,
	// for the +KW family where key agreement happens twice: once implicitly
	// (to record "epk" before content encryption) and once explicitly (to
	// derive the key-encryption key afterward). Both must agree against the
	// same ephemeral key.
	ephPriv crypto.PrivateKey
}

// agree performs the ECDH-1PU key agreement: Z = Ze || Zs, where Ze is the
// ephemeral-static agreement (as in ECDH-ES) and Zs is the static-static
// agreement that ties the result to the sender's identity key. On the
// sending side (no "epk" recorded yet) it generates the ephemeral key
// against the recipient's public key; on the receiving side it uses the
// caller's own static private key (the first argument of
// NewSenderKeyWrapper) against the sender's recorded ephemeral public key.
func (w *senderKeys) agree(h headerAccessor) ([]byte, error) {
	var ze []byte
	switch {
	case w.ephPriv != nil:
		// sending side, ephemeral key already generated and recorded in the
		// header by PrepareHeader.
		if w.recipientPub == nil {
			return nil, errors.New("ecdh1pu: recipient public key is required to wrap")
		}
		z, err := deriveZ(w.ephPriv, w.recipientPub)
		if err != nil {
			return nil, err
		}
		ze = z
	case h.EphemeralPublicKey() != nil:
		// receiving side
		if w.senderPriv == nil {
			return nil, errors.New("ecdh1pu: own static private key is required to unwrap")
		}
		z, err := deriveZ(w.senderPriv, h.EphemeralPublicKey().PublicKey())
		if err != nil {
			return nil, err
		}
		ze = z
	default:
		// sending side, no ephemeral key prepared yet
		if w.recipientPub == nil {
			return nil, errors.New("ecdh1pu: recipient public key is required to wrap")
		}
		ephPriv, epk, err := generateEphemeral(w.recipientPub)
		if err != nil {
			return nil, err
		}
		h.SetEphemeralPublicKey(epk)
		z, err := deriveZ(ephPriv, w.recipientPub)
		if err != nil {
			return nil, err
		}
		ze = z
	}

	var zs []byte
	switch {
	case w.senderPriv != nil && w.recipientPub != nil:
		z, err := deriveZ(w.senderPriv, w.recipientPub)
		if err != nil {
			return nil, err
		}
		zs = z
	case w.recipientPriv != nil && w.senderPub != nil:
		z, err := deriveZ(w.recipientPriv, w.senderPub)
		if err != nil {
			return nil, err
		}
		zs = z
	default:
		return nil, errors.New("ecdh1pu: both a static private key and the other party's static public key are required")
	}

	z := make([]byte, 0, len(ze)+len(zs))
	z = append(z, ze...)
	z = append(z, zs...)
	return z, nil
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
		return nil, nil, fmt.Errorf("ecdh1pu: unsupported public key type: %T", pub)
	}
}

func deriveZ(priv crypto.PrivateKey, pub crypto.PublicKey) ([]byte, error) {
	switch priv := priv.(type) {
	case x25519.PrivateKey:
		pubkey, ok := pub.(x25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("ecdh1pu: want x25519.PublicKey but got %T", pub)
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
			return nil, fmt.Errorf("ecdh1pu: want *ecdsa.PublicKey but got %T", pub)
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
			return nil, fmt.Errorf("ecdh1pu: want *ecdh.PublicKey but got %T", pub)
		}
		return priv.ECDH(pubkey)
	default:
		return nil, fmt.Errorf("ecdh1pu: unknown private key type: %T", priv)
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
// key from the shared secret z. For the +KW family, tag is the content
// encryption authentication tag, fed in as trailing bytes after SuppPubInfo
// so the key-encryption key authenticates the ciphertext it wraps a key for;
// plain ECDH-1PU passes a nil tag.
func deriveKey(z, algID, apu, apv, tag []byte, keySize int) ([]byte, error) {
	var bits [4]byte
	n := keySize * 8
	bits[0] = byte(n >> 24)
	bits[1] = byte(n >> 16)
	bits[2] = byte(n >> 8)
	bits[3] = byte(n)

	pubinfo := make([]byte, 0, 4+len(tag))
	pubinfo = append(pubinfo, bits[:]...)
	pubinfo = append(pubinfo, tag...)

	r := newKDF(crypto.SHA256, z, algID, apu, apv, pubinfo, []byte{})
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// contentTagAccessor is implemented by JWE headers that can carry the
// content encryption authentication tag as an internal side channel (never
// a serialized header member). It is used only by the +KW family.
type contentTagAccessor interface {
	ContentAuthenticationTag() []byte
}

func contentTagFrom(opts any) []byte {
	if a, ok := opts.(contentTagAccessor); ok {
		return a.ContentAuthenticationTag()
	}
	return nil
}

var _ keymanage.KeyWrapper = (*directKeyWrapper)(nil)
var _ keymanage.KeyDeriver = (*directKeyWrapper)(nil)

// directKeyWrapper implements plain "ECDH-1PU", where the derived key is
// used as the CEK directly instead of wrapping one.
type directKeyWrapper struct {
	*senderKeys
}

// WrapKey is unreachable in the normal message-encryption flow: jwe always
// prefers DeriveKey when it is available, since plain ECDH-1PU can only
// produce a CEK equal to the derived key, not wrap an independently chosen
// one.
func (w *directKeyWrapper) WrapKey(cek []byte, opts any) ([]byte, error) {
	return nil, errors.New("ecdh1pu: plain ECDH-1PU cannot wrap an existing CEK")
}

// UnwrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
// data is ignored: the CEK is the derived key itself.
func (w *directKeyWrapper) UnwrapKey(data []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdh1pu: invalid header type: %T", opts)
	}
	size := cekSizeForEnc(h.EncryptionAlgorithm())
	if size == 0 {
		return nil, fmt.Errorf("ecdh1pu: unsupported encryption algorithm: %s", h.EncryptionAlgorithm())
	}
	z, err := w.agree(h)
	if err != nil {
		return nil, err
	}
	return deriveKey(z, []byte(h.EncryptionAlgorithm().String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), nil, size)
}

// DeriveKey implements [github.com/go-jose-sdk/jose/keymanage.KeyDeriver].
func (w *directKeyWrapper) DeriveKey(opts any) (cek, encryptedKey []byte, err error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, nil, fmt.Errorf("ecdh1pu: invalid header type: %T", opts)
	}
	size := cekSizeForEnc(h.EncryptionAlgorithm())
	if size == 0 {
		return nil, nil, fmt.Errorf("ecdh1pu: unsupported encryption algorithm: %s", h.EncryptionAlgorithm())
	}
	z, err := w.agree(h)
	if err != nil {
		return nil, nil, err
	}
	cek, err = deriveKey(z, []byte(h.EncryptionAlgorithm().String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), nil, size)
	if err != nil {
		return nil, nil, err
	}
	return cek, []byte{}, nil
}

var _ keymanage.KeyWrapper = (*kwKeyWrapper)(nil)
var _ keymanage.TagDependentKeyWrapper = (*kwKeyWrapper)(nil)

// kwKeyWrapper implements the "ECDH-1PU+A128KW"/"+A192KW"/"+A256KW" family:
// key agreement derives a key-encryption key, which then wraps an
// independently generated CEK with AES Key Wrap. Key derivation folds in the
// content encryption authentication tag, so wrapping happens in two steps:
// PrepareHeader fixes "epk" before the content is encrypted, and WrapKey
// completes the derivation afterward using the now-known tag.
type kwKeyWrapper struct {
	alg *Algorithm
	*senderKeys
}

// PrepareHeader implements
// [github.com/go-jose-sdk/jose/keymanage.TagDependentKeyWrapper]. It
// generates the ephemeral key and records it as "epk" before the Additional
// Authenticated Data for content encryption is computed.
func (w *kwKeyWrapper) PrepareHeader(opts any) error {
	h, ok := opts.(headerAccessor)
	if !ok {
		return fmt.Errorf("ecdh1pu: invalid header type: %T", opts)
	}
	if w.recipientPub == nil {
		return errors.New("ecdh1pu: recipient public key is required to wrap")
	}
	ephPriv, epk, err := generateEphemeral(w.recipientPub)
	if err != nil {
		return err
	}
	h.SetEphemeralPublicKey(epk)
	w.ephPriv = ephPriv
	return nil
}

// WrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper]. opts
// must expose the content encryption authentication tag by the time WrapKey
// is called; jwe sets it after encrypting content and before wrapping.
func (w *kwKeyWrapper) WrapKey(cek []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdh1pu: invalid header type: %T", opts)
	}
	z, err := w.agree(h)
	if err != nil {
		return nil, err
	}
	tag := contentTagFrom(opts)
	kek, err := deriveKey(z, []byte(w.alg.alg.String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), tag, w.alg.keySize)
	if err != nil {
		return nil, err
	}
	return akw.NewKeyWrapperRaw(kek).WrapKey(cek, opts)
}

// UnwrapKey implements [github.com/go-jose-sdk/jose/keymanage.KeyWrapper].
func (w *kwKeyWrapper) UnwrapKey(data []byte, opts any) ([]byte, error) {
	h, ok := opts.(headerAccessor)
	if !ok {
		return nil, fmt.Errorf("ecdh1pu: invalid header type: %T", opts)
	}
	z, err := w.agree(h)
	if err != nil {
		return nil, err
	}
	tag := contentTagFrom(opts)
	kek, err := deriveKey(z, []byte(w.alg.alg.String()), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), tag, w.alg.keySize)
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
