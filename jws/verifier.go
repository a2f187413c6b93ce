package jws

import (
	"context"
	"errors"

	"github.com/go-jose-sdk/jose/jwa"
)

var errVerifyFailed = errors.New("jws: failed to verify the message")

// AlgorithmVerfier verifies the algorithm used for signing.
type AlgorithmVerfier interface {
	VerifyAlgorithm(ctx context.Context, alg jwa.SignatureAlgorithm) error
}

type AllowedAlgorithms []jwa.SignatureAlgorithm

func (a AllowedAlgorithms) VerifyAlgorithm(ctx context.Context, alg jwa.SignatureAlgorithm) error {
	for _, allowed := range a {
		if alg == allowed {
			return nil
		}
	}
	return errors.New("jws: signing algorithm is not allowed")
}

// UnsecureAnyAlgorithm is an AlgorithmVerfier that accepts any algorithm,
// including "none". Only use it for signing algorithms that are otherwise
// constrained by the caller (e.g. a fixed key whose algorithm is already
// known) — never as a default for verifying untrusted tokens.
var UnsecureAnyAlgorithm = unsecureAnyAlgorithmVerifier{}

type unsecureAnyAlgorithmVerifier struct{}

func (unsecureAnyAlgorithmVerifier) VerifyAlgorithm(ctx context.Context, alg jwa.SignatureAlgorithm) error {
	return nil
}

// Verifier verifies the JWS message.
type Verifier struct {
	_NamedFieldsRequired struct{}

	// AlgorithmVerifier decides whether each signature's "alg" is accepted.
	// A caller that wants to accept unsecured ("none") tokens must both
	// blank-import jwa/none and include jwa.None in AlgorithmVerifier's
	// allow-list (e.g. AllowedAlgorithms{jwa.None, ...}) — the import alone
	// only makes the algorithm resolvable, this field is the opt-in.
	AlgorithmVerifier AlgorithmVerfier
	KeyFinder         KeyFinder
}

// Verify verifies the JWS message and returns the protected and unprotected
// headers of the first signature that verifies, along with the decoded
// payload.
func (v *Verifier) Verify(ctx context.Context, msg *Message) (protected, unprotected *Header, payload []byte, err error) {
	return v.verify(ctx, msg, nil)
}

// VerifyContent verifies msg against a detached payload supplied by the
// caller, as required for JWS(b64=false, crit:["b64"]) (RFC 7797 §3): the
// signing input is built from the protected header and the caller's raw
// payload instead of msg's own (possibly empty) payload field.
func (v *Verifier) VerifyContent(ctx context.Context, msg *Message, content []byte) (protected, unprotected *Header, payload []byte, err error) {
	return v.verify(ctx, msg, content)
}

func (v *Verifier) verify(ctx context.Context, msg *Message, detached []byte) (protected, unprotected *Header, payload []byte, err error) {
	_ = v._NamedFieldsRequired
	if v.AlgorithmVerifier == nil || v.KeyFinder == nil {
		return nil, nil, nil, errors.New("jws: verifier is not configured")
	}

	// pre-allocate buffer
	size := 0
	for _, sig := range msg.Signatures {
		if len(sig.rawProtected) > size {
			size = len(sig.rawProtected)
		}
	}
	size += len(msg.payload) + len(detached) + 1 // +1 for '.'
	buf := make([]byte, size)

	for _, sig := range msg.Signatures {
		if err := v.AlgorithmVerifier.VerifyAlgorithm(ctx, sig.protected.alg); err != nil {
			continue
		}
		key, err := v.KeyFinder.FindKey(ctx, sig.protected, sig.header)
		if err != nil {
			continue
		}
		signingInput := msg.payload
		if detached != nil {
			signingInput = detached
		}
		buf = buf[:0]
		buf = append(buf, sig.rawProtected...)
		buf = append(buf, '.')
		buf = append(buf, signingInput...)
		err = key.Verify(buf, sig.signature)
		if err == nil {
			var ret []byte
			if sig.protected.Base64() {
				ret, err = b64Decode(signingInput)
				if err != nil {
					return nil, nil, nil, errVerifyFailed
				}
			} else {
				ret = signingInput
			}
			return sig.protected, sig.header, ret, nil
		}
	}
	return nil, nil, nil, errVerifyFailed
}
