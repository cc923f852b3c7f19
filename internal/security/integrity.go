// Package security signs outgoing analysis payloads so downstream consumers
// can verify scores were produced by this service and not altered in flight.
package security

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Signature is the integrity envelope attached to signed payloads.
type Signature struct {
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
	Timestamp int64  `json:"timestamp"`
}

// IntegrityService signs response payloads with a per-process secp256k1 key.
// When disabled it passes payloads through untouched.
type IntegrityService struct {
	enabled      bool
	signer       *ecdsa.PrivateKey
	publicKeyHex string
}

// NewIntegrityService generates a fresh signing key when enabled.
func NewIntegrityService(enabled bool) (*IntegrityService, error) {
	s := &IntegrityService{enabled: enabled}
	if !enabled {
		return s, nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	s.signer = key
	s.publicKeyHex = hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey))

	logrus.WithField("publicKey", s.publicKeyHex[:16]+"...").Info("Response signing enabled")
	return s, nil
}

// Sign produces the integrity envelope for a payload, or nil when signing is
// disabled. The payload's canonical JSON encoding is keccak256-hashed and
// signed.
func (s *IntegrityService) Sign(payload interface{}) (*Signature, error) {
	if !s.enabled {
		return nil, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	hash := crypto.Keccak256(raw)
	sig, err := crypto.Sign(hash, s.signer)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &Signature{
		Signature: hex.EncodeToString(sig),
		PublicKey: s.publicKeyHex,
		Algorithm: "ECDSA-secp256k1-keccak256",
		Timestamp: time.Now().Unix(),
	}, nil
}

// Verify checks an envelope against a payload. Used by tests and by
// consumers that re-verify responses.
func (s *IntegrityService) Verify(payload interface{}, sig *Signature) (bool, error) {
	if sig == nil {
		return !s.enabled, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	sigBytes, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return false, fmt.Errorf("malformed signature: %w", err)
	}
	pubBytes, err := hex.DecodeString(sig.PublicKey)
	if err != nil {
		return false, fmt.Errorf("malformed public key: %w", err)
	}

	hash := crypto.Keccak256(raw)
	// Drop the recovery id; VerifySignature wants the 64-byte form.
	if len(sigBytes) == 65 {
		sigBytes = sigBytes[:64]
	}
	return crypto.VerifySignature(pubBytes, hash, sigBytes), nil
}
