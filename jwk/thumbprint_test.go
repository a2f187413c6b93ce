package jwk

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestThumbprint_RFC7638(t *testing.T) {
	// RFC 7638 Appendix A.1-A.3.
	rawKey := `{"kty":"RSA",` +
		`"n":"0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86z` +
		`wu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc` +
		`5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8K` +
		`JZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh` +
		`6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKn` +
		`qDKgw",` +
		`"e":"AQAB",` +
		`"alg":"RS256",` +
		`"kid":"2011-04-29"` +
		`}`
	key, err := ParseKey([]byte(rawKey))
	if err != nil {
		t.Fatal(err)
	}

	got, err := key.Thumbprint(sha256.New())
	if err != nil {
		t.Fatal(err)
	}
	want := "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs"
	if enc := base64.RawURLEncoding.EncodeToString(got); enc != want {
		t.Errorf("want %s, got %s", want, enc)
	}
}

// The thumbprint is defined only over the required members of a key's kty
// (RFC 7638 §3.2), so it must stay the same whether the key carries a
// private part, a "kid", or other optional members.
func TestThumbprint_OKP_ignoresOptionalMembers(t *testing.T) {
	pub := `{"kty":"OKP","crv":"Ed25519",` +
		`"x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`
	priv := `{"kty":"OKP","crv":"Ed25519",` +
		`"d":"nWGxne_9WmC6hEr0kuwsxERJxWl7MmkZcDusAxyuf2A",` +
		`"x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`
	withKid := `{"kty":"OKP","crv":"Ed25519","kid":"example",` +
		`"x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`

	var sums [][]byte
	for _, raw := range []string{pub, priv, withKid} {
		key, err := ParseKey([]byte(raw))
		if err != nil {
			t.Fatal(err)
		}
		sum, err := key.Thumbprint(sha256.New())
		if err != nil {
			t.Fatal(err)
		}
		sums = append(sums, sum)
	}

	for i := 1; i < len(sums); i++ {
		if string(sums[i]) != string(sums[0]) {
			t.Errorf("thumbprint changed across optional members: %x != %x", sums[0], sums[i])
		}
	}

	// RFC 8037 Appendix A.3's Ed25519 key over {"crv","kty","x"}.
	want := "kPrK_qmxVWaYVA9wwBF6Iuo3vVzz7TxHCTwXBygrS4k"
	if enc := base64.RawURLEncoding.EncodeToString(sums[0]); enc != want {
		t.Errorf("want %s, got %s", want, enc)
	}

	other := `{"kty":"OKP","crv":"X25519",` +
		`"x":"3p7bfXt9wbTTW2HC7OQ1Nz-DQ8hbeGdNrfx-FG-IK08"}`
	key, err := ParseKey([]byte(other))
	if err != nil {
		t.Fatal(err)
	}
	sum, err := key.Thumbprint(sha256.New())
	if err != nil {
		t.Fatal(err)
	}
	if string(sum) == string(sums[0]) {
		t.Error("distinct keys produced the same thumbprint")
	}
}
