package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Event kinds accepted by the verification boundary.
const (
	// KindClientAuth is the authentication event kind signed against a
	// server-issued challenge.
	KindClientAuth = 22242

	// KindHTTPAuth is the HTTP authentication event kind. It is the only
	// kind accepted on the inline path and is additionally accepted as a
	// legacy alternate on the ownership path.
	KindHTTPAuth = 27235
)

// Event is a signed authentication event as returned by a signer.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// ComputeID returns the content-addressed identifier of the event: the
// sha256 digest of the canonical serialization [0,pubkey,created_at,kind,
// tags,content]. The serialization disables HTML escaping so the byte
// stream is reproducible across implementations, which matters because the
// verifier recomputes the id independently of whatever the client claims.
func (e *Event) ComputeID() (string, error) {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}); err != nil {
		return "", fmt.Errorf("failed to serialize event: %w", err)
	}

	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:]), nil
}

// CheckShape validates field presence and shape before any cryptographic
// work is attempted.
func (e *Event) CheckShape() error {
	if !isHex(e.PubKey, 64) {
		return NewError(KindMalformedEvent, "pubkey must be 64 hex characters")
	}
	if !isHex(e.ID, 64) {
		return NewError(KindMalformedEvent, "id must be 64 hex characters")
	}
	if !isHex(e.Sig, 128) {
		return NewError(KindMalformedEvent, "sig must be 128 hex characters")
	}
	if e.CreatedAt <= 0 {
		return NewError(KindMalformedEvent, "created_at is missing")
	}
	for _, tag := range e.Tags {
		if len(tag) == 0 {
			return NewError(KindMalformedEvent, "empty tag")
		}
	}
	return nil
}

// Tag returns the first value of the named tag, or "" if absent.
func (e *Event) Tag(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	if e.Tags != nil {
		c.Tags = make([][]string, len(e.Tags))
		for i, tag := range e.Tags {
			c.Tags[i] = append([]string(nil), tag...)
		}
	}
	return &c
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
