// Package bip340 wraps BIP-340 Schnorr signing and verification over
// secp256k1 with hex-encoded inputs as they appear on the wire.
package bip340

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Verify checks a 64-byte Schnorr signature over a 32-byte message against
// a 32-byte x-only public key, all hex-encoded. The message is the event id
// digest itself; it is not hashed again. Malformed hex, wrong lengths and
// keys not on the curve all return false, never panic.
func Verify(sigHex, msgHex, pubKeyHex string) bool {
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil || len(sigBytes) != 64 {
		return false
	}
	msg, err := hex.DecodeString(msgHex)
	if err != nil || len(msg) != 32 {
		return false
	}
	pubKeyBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pubKeyBytes) != 32 {
		return false
	}

	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}

	return sig.Verify(msg, pubKey)
}

// Sign produces a hex-encoded BIP-340 signature over the hex-encoded
// 32-byte message.
func Sign(privKey *secp256k1.PrivateKey, msgHex string) (string, error) {
	msg, err := hex.DecodeString(msgHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode message: %w", err)
	}
	if len(msg) != 32 {
		return "", fmt.Errorf("message must be 32 bytes, got %d", len(msg))
	}

	sig, err := schnorr.Sign(privKey, msg)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// GeneratePrivateKey creates a fresh secp256k1 private key.
func GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PubKeyHex returns the 64-hex x-only public key for privKey.
func PubKeyHex(privKey *secp256k1.PrivateKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(privKey.PubKey()))
}
