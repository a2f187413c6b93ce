package jwk

import (
	"fmt"

	"github.com/go-jose-sdk/jose/internal/jsonutils"
	"github.com/go-jose-sdk/jose/jwa"
)

// RFC8037 2.  Key Type "OKP"
func parseOKPKey(d *jsonutils.Decoder, key *Key) {
	crv := jwa.EllipticCurve(d.MustString("crv"))
	switch crv {
	case jwa.Ed25519:
		parseEd25519Key(d, key)
	case jwa.X25519:
		parseX25519Key(d, key)
	case "":
		d.SaveError(fmt.Errorf("jwk: the crv parameter is missing"))
	default:
		d.SaveError(fmt.Errorf("jwk: unknown crv: %q", crv))
	}
}
