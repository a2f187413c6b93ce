// package es implements ECDSA algorithm.
package es

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"

	"github.com/go-jose-sdk/jose/jwa"
	"github.com/go-jose-sdk/jose/jwk/jwktypes"
	"github.com/go-jose-sdk/jose/secp256k1"
	"github.com/go-jose-sdk/jose/sig"
)

var es256 = &Algorithm{
	alg:  jwa.ES256,
	hash: crypto.SHA256,
	crv:  elliptic.P256(),
}

// New256 returns ES256 signature algorithm.
func New256() sig.Algorithm {
	return es256
}

var es384 = &Algorithm{
	alg:  jwa.ES384,
	hash: crypto.SHA384,
	crv:  elliptic.P384(),
}

// New384 returns ES384 signature algorithm.
func New384() sig.Algorithm {
	return es384
}

var es512 = &Algorithm{
	alg:  jwa.ES512,
	hash: crypto.SHA512,
	crv:  elliptic.P521(),
}

// New512 returns ES512 signature algorithm.
func New512() sig.Algorithm {
	return es512
}

var es256k = &Algorithm{
	alg:  jwa.ES256K,
	hash: crypto.SHA256,
	crv:  secp256k1.Curve(),
}

// New256K returns ES256K signature algorithm.
//
// Some existing implementations (notably older versions of BouncyCastle)
// encode the signature with R and S swapped. New256K never accepts that
// encoding; use New256KBouncyCastleCompat for interop with such peers.
func New256K() sig.Algorithm {
	return es256k
}

var es256kCompat = &Algorithm{
	alg:            jwa.ES256K,
	hash:           crypto.SHA256,
	crv:            secp256k1.Curve(),
	allowSwappedRS: true,
}

// New256KBouncyCastleCompat is same as New256K, but Verify additionally
// accepts a signature with R and S swapped before rejecting it, to
// interoperate with legacy BouncyCastle-based ES256K implementations.
//
// This behavior is opt-in: it is not wired to the "ES256K" algorithm
// registry entry, since silently accepting the swapped encoding widens
// what counts as a valid signature.
func New256KBouncyCastleCompat() sig.Algorithm {
	return es256kCompat
}

func init() {
	jwa.RegisterSignatureAlgorithm(jwa.ES256, New256)
	jwa.RegisterSignatureAlgorithm(jwa.ES384, New384)
	jwa.RegisterSignatureAlgorithm(jwa.ES512, New512)
	jwa.RegisterSignatureAlgorithm(jwa.ES256K, New256K)
}

var _ sig.Algorithm = (*Algorithm)(nil)

type Algorithm struct {
	alg  jwa.SignatureAlgorithm
	hash crypto.Hash
	crv  elliptic.Curve

	// allowSwappedRS makes Verify also accept a signature encoded with
	// R and S swapped. Defaults to false.
	allowSwappedRS bool
}

var _ sig.SigningKey = (*signingKey)(nil)

type signingKey struct {
	alg        *Algorithm
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	canSign    bool
	canVerify  bool
}

// NewSigningKey implements [github.com/go-jose-sdk/jose/sig.Algorithm].
func (alg *Algorithm) NewSigningKey(key sig.Key) sig.SigningKey {
	priv := key.PrivateKey()
	pub := key.PublicKey()

	k := &signingKey{
		alg:       alg,
		canSign:   jwktypes.CanUseFor(key, jwktypes.KeyOpSign),
		canVerify: jwktypes.CanUseFor(key, jwktypes.KeyOpVerify),
	}
	if pk, ok := priv.(*ecdsa.PrivateKey); ok {
		if pk != nil && pk.Curve != alg.crv {
			return sig.NewInvalidKey(alg.alg.String(), priv, pub)
		}
		k.privateKey = pk
	} else if priv != nil {
		return sig.NewInvalidKey(alg.alg.String(), priv, pub)
	}
	if pk, ok := pub.(*ecdsa.PublicKey); ok {
		if pk != nil && pk.Curve != alg.crv {
			return sig.NewInvalidKey(alg.alg.String(), priv, pub)
		}
		k.publicKey = pk
	} else if pub != nil {
		return sig.NewInvalidKey(alg.alg.String(), priv, pub)
	}
	if k.privateKey != nil && k.publicKey == nil {
		k.publicKey = &k.privateKey.PublicKey
	}
	return k
}

// Sign implements [github.com/go-jose-sdk/jose/sig.SigningKey].
func (key *signingKey) Sign(payload []byte) (signature []byte, err error) {
	if !key.alg.hash.Available() {
		return nil, sig.ErrHashUnavailable
	}
	if key.privateKey == nil || !key.canSign {
		return nil, sig.ErrSignUnavailable
	}

	hash := key.alg.hash.New()
	if _, err := hash.Write(payload); err != nil {
		return nil, err
	}
	sum := hash.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, key.privateKey, sum)
	if err != nil {
		return nil, err
	}
	bits := key.privateKey.Curve.Params().BitSize
	size := (bits + 7) / 8

	ret := make([]byte, 2*size)
	r.FillBytes(ret[:size])
	s.FillBytes(ret[size:])
	return ret, nil
}

// Verify implements [github.com/go-jose-sdk/jose/sig.SigningKey].
func (key *signingKey) Verify(payload, signature []byte) error {
	if !key.alg.hash.Available() {
		return sig.ErrHashUnavailable
	}
	if key.publicKey == nil || !key.canVerify {
		return sig.ErrSignUnavailable
	}

	hash := key.alg.hash.New()
	if _, err := hash.Write(payload); err != nil {
		return err
	}
	sum := hash.Sum(nil)

	bits := key.publicKey.Curve.Params().BitSize
	size := (bits + 7) / 8
	if len(signature) != 2*size {
		// not the raw R || S form; try the ASN.1 DER encoding.
		if ecdsa.VerifyASN1(key.publicKey, sum, signature) {
			return nil
		}
		return sig.ErrSignatureMismatch
	}

	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])
	if ecdsa.Verify(key.publicKey, sum, r, s) {
		return nil
	}
	if key.alg.allowSwappedRS {
		if ecdsa.Verify(key.publicKey, sum, s, r) {
			return nil
		}
	}
	return sig.ErrSignatureMismatch
}
