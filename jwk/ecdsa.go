package jwk

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-jose-sdk/jose/internal/jsonutils"
	"github.com/go-jose-sdk/jose/jwa"
	"github.com/go-jose-sdk/jose/secp256k1"
)

// RFC7518 6.2.2. Parameters for Elliptic Curve Private Keys
func parseEcdsaKey(d *jsonutils.Decoder, key *Key) {
	crv := jwa.EllipticCurve(d.MustString("crv"))
	var curve elliptic.Curve
	switch crv {
	case jwa.P256:
		curve = elliptic.P256()
	case jwa.P384:
		curve = elliptic.P384()
	case jwa.P521:
		curve = elliptic.P521()
	case jwa.Secp256k1:
		curve = secp256k1.Curve()
	default:
		d.SaveError(fmt.Errorf("jwk: unknown crv: %q", crv))
		return
	}

	// parameters for public key
	pub := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(d.MustBytes("x")),
		Y:     new(big.Int).SetBytes(d.MustBytes("y")),
	}
	key.pub = pub

	// parameters for private key
	if param, ok := d.GetBytes("d"); ok {
		key.priv = &ecdsa.PrivateKey{
			PublicKey: *pub,
			D:         new(big.Int).SetBytes(param),
		}
	}

	// sanity check of the certificate
	if certs := key.x5c; len(certs) > 0 {
		cert := certs[0]
		publicKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			d.SaveError(errors.New("jwk: public key types are mismatch"))
			return
		}
		if !pub.Equal(publicKey) {
			d.SaveError(errors.New("jwk: public keys are mismatch"))
		}
	}
}

func encodeEcdsaKey(e *jsonutils.Encoder, priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) {
	e.Set("kty", jwa.EC.String())

	var crv jwa.EllipticCurve
	switch pub.Curve {
	case elliptic.P256():
		crv = jwa.P256
	case elliptic.P384():
		crv = jwa.P384
	case elliptic.P521():
		crv = jwa.P521
	case secp256k1.Curve():
		crv = jwa.Secp256k1
	default:
		e.SaveError(fmt.Errorf("jwk: unknown curve: %v", pub.Curve))
		return
	}
	e.Set("crv", crv.String())

	size := (pub.Curve.Params().BitSize + 7) / 8
	e.SetBytes("x", fixedBytes(pub.X, size))
	e.SetBytes("y", fixedBytes(pub.Y, size))
	if priv != nil {
		e.SetBytes("d", fixedBytes(priv.D, size))
	}
}

// fixedBytes returns the big-endian encoding of i, left-padded with zeros
// to exactly size bytes, as required for EC coordinates in RFC 7518 6.2.1.
func fixedBytes(i *big.Int, size int) []byte {
	buf := make([]byte, size)
	b := i.Bytes()
	copy(buf[size-len(b):], b)
	return buf
}
