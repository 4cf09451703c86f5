package core

import (
	"net/url"
	"strings"
)

// BunkerURI is a parsed remote-signer connection URI of the form
// bunker://<pubkey>?relay=<url>&relay=<url>&secret=<value>.
type BunkerURI struct {
	PubKey string
	Relays []string
	Secret string
}

// ParseBunkerURI parses and validates a bunker connection URI.
func ParseBunkerURI(raw string) (*BunkerURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, WrapError(KindMalformedEvent, "invalid bunker URI", err)
	}
	if u.Scheme != "bunker" {
		return nil, NewError(KindMalformedEvent, "bunker URI must use the bunker:// scheme")
	}

	pubkey := strings.ToLower(u.Host)
	if !isHex(pubkey, 64) {
		return nil, NewError(KindMalformedEvent, "bunker pubkey must be 64 hex characters")
	}

	query := u.Query()
	relays := query["relay"]
	if len(relays) == 0 {
		return nil, NewError(KindMalformedEvent, "bunker URI must name at least one relay")
	}
	for _, relay := range relays {
		ru, err := url.Parse(relay)
		if err != nil || (ru.Scheme != "ws" && ru.Scheme != "wss") {
			return nil, NewError(KindMalformedEvent, "relay must be a ws:// or wss:// URL")
		}
	}

	return &BunkerURI{
		PubKey: pubkey,
		Relays: relays,
		Secret: query.Get("secret"),
	}, nil
}

// IsSecure reports whether the URI carries a connection secret. A URI with
// only a pubkey and relay list can be impersonated by anyone who sees the
// pubkey and races the legitimate bunker on the relay; the secret is a
// shared value the legitimate bunker must echo back, which an attacker who
// did not originate the URI cannot know. Connections to insecure URIs must
// hard-fail, never silently degrade.
func (b *BunkerURI) IsSecure() bool {
	return b.Secret != ""
}

// ErrInsecureBunkerURI is the failure surfaced when a connection to an
// insecure bunker URI is attempted. The hint is actionable: users of common
// signer apps can export a URI that includes a secret.
func ErrInsecureBunkerURI() *Error {
	return NewError(KindInsecureBunkerURI,
		"bunker URI has no secret and could be impersonated on the relay; "+
			"generate a fresh connection URI from your signer app (most show it under "+
			"'connect' or 'add client') so it includes a secret parameter")
}
