package jwe

import (
	"testing"

	"github.com/go-jose-sdk/jose/jwa"
	_ "github.com/go-jose-sdk/jose/jwa/agcm" // for AES-GCM
	"github.com/go-jose-sdk/jose/jwa/ecdh1pu"
	"github.com/go-jose-sdk/jose/jwk"
	"github.com/go-jose-sdk/jose/keymanage"
)

func aliceAndBobStatic(t *testing.T) (alice, bob *jwk.Key) {
	t.Helper()
	aliceRaw := `{"kty":"EC",` +
		`"crv":"P-256",` +
		`"x":"gI0GAILBdu7T53akrFmMyGcsF3n5dO7MmwNBHKW5SV0",` +
		`"y":"SLW_xSffzlPWrHEVI30DHM_4egVwt3NQqeUD7nMFpps",` +
		`"d":"0_NxaRPUMQoAJt50Gz8YiTr8gRTwyEaCumd-MToTmIo"` +
		`}`
	alice, err := jwk.ParseKey([]byte(aliceRaw))
	if err != nil {
		t.Fatal(err)
	}

	bobRaw := `{"kty":"EC",` +
		`"crv":"P-256",` +
		`"x":"weNJy2HscCSM6AEDTDg04biOvhFhyyWvOHQfeF_PxMQ",` +
		`"y":"e8lnCO-AlStT-NJVX-crhB7QRYhiix03illJOVAOyck",` +
		`"d":"VEmDZpDXXK8p8N0Cndsxs924q6nS1RXFASRl6BfUqdw"` +
		`}`
	bob, err = jwk.ParseKey([]byte(bobRaw))
	if err != nil {
		t.Fatal(err)
	}
	return alice, bob
}

// TestECDH1PU_KW_roundTrip exercises the ECDH-1PU+A128KW path end to end,
// where the key-encryption key derivation depends on the content
// authentication tag: the header's "epk" must be fixed before content is
// encrypted, and the actual key wrap happens only afterward.
func TestECDH1PU_KW_roundTrip(t *testing.T) {
	alice, bob := aliceAndBobStatic(t)

	alg := ecdh1pu.NewA128KW().(interface {
		NewSenderKeyWrapper(sender, recipient keymanage.Key) keymanage.KeyWrapper
	})
	sender := alg.NewSenderKeyWrapper(alice, bob)

	header := &Header{}
	header.SetAlgorithm(jwa.ECDH_1PU_A128KW)
	header.SetAgreementPartyUInfo([]byte("Alice"))
	header.SetAgreementPartyVInfo([]byte("Bob"))

	plaintext := "The true sign of intelligence is not knowledge but imagination."
	msg1, err := NewMessageWithKW(jwa.A128GCM, sender, header, []byte(plaintext))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := msg1.Compact()
	if err != nil {
		t.Fatal(err)
	}

	msg2, err := Parse(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	receiver := alg.NewSenderKeyWrapper(bob, alice)
	got, err := msg2.Decrypt(FindKeyWrapperFunc(func(protected, unprotected, recipient *Header) (wrapper keymanage.KeyWrapper, err error) {
		return receiver, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != plaintext {
		t.Errorf("want %s, got %s", plaintext, got)
	}
}

// TestECDH1PU_direct_roundTrip exercises plain "ECDH-1PU", where the derived
// key is used as the CEK directly.
func TestECDH1PU_direct_roundTrip(t *testing.T) {
	alice, bob := aliceAndBobStatic(t)

	alg := ecdh1pu.New().(interface {
		NewSenderKeyWrapper(sender, recipient keymanage.Key) keymanage.KeyWrapper
	})
	sender := alg.NewSenderKeyWrapper(alice, bob)

	header := &Header{}
	header.SetAlgorithm(jwa.ECDH_1PU)
	header.SetAgreementPartyUInfo([]byte("Alice"))
	header.SetAgreementPartyVInfo([]byte("Bob"))

	plaintext := "The true sign of intelligence is not knowledge but imagination."
	msg1, err := NewMessageWithKW(jwa.A128GCM, sender, header, []byte(plaintext))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := msg1.Compact()
	if err != nil {
		t.Fatal(err)
	}

	msg2, err := Parse(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	receiver := alg.NewSenderKeyWrapper(bob, alice)
	got, err := msg2.Decrypt(FindKeyWrapperFunc(func(protected, unprotected, recipient *Header) (wrapper keymanage.KeyWrapper, err error) {
		return receiver, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != plaintext {
		t.Errorf("want %s, got %s", plaintext, got)
	}
}
