package signer

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/internal/bip340"
	"github.com/zapgate/zapgate/ports"
)

// LocalSigner holds the private key in-process and answers synchronously.
// It is the extension-analog variant: a flow started with it completes
// without any redirect.
type LocalSigner struct {
	privKey *secp256k1.PrivateKey
}

// NewLocalSigner creates a signer around an in-process private key.
func NewLocalSigner(privKey *secp256k1.PrivateKey) *LocalSigner {
	return &LocalSigner{privKey: privKey}
}

// GetPublicKey returns the signer's x-only public key.
func (s *LocalSigner) GetPublicKey(ctx context.Context) (string, error) {
	return bip340.PubKeyHex(s.privKey), nil
}

// SignEvent fills in pubkey, id and sig and returns a signed copy.
func (s *LocalSigner) SignEvent(ctx context.Context, event *core.Event) (*core.Event, error) {
	signed := event.Clone()
	signed.PubKey = bip340.PubKeyHex(s.privKey)

	id, err := signed.ComputeID()
	if err != nil {
		return nil, err
	}
	signed.ID = id

	sig, err := bip340.Sign(s.privKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to sign event: %w", err)
	}
	signed.Sig = sig
	return signed, nil
}

// Method names the session auth method for in-process logins.
func (s *LocalSigner) Method() string {
	return core.AuthMethodExtension
}

var _ ports.Signer = (*LocalSigner)(nil)
