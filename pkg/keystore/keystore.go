// Package keystore provides the secp256k1 signing capability for attestations.
package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/stablemint/oracle-engine/pkg/oracle/attest"
)

var (
	// ErrKeyNotFound indicates that no key material was found.
	ErrKeyNotFound = errors.New("signing key not found")
	// ErrInvalidSignature indicates a signature that does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Keystore signs attestation payloads with a secp256k1 key. The key is loaded
// once at construction and held read-only, so concurrent Sign calls are safe.
type Keystore struct {
	key    *ecdsa.PrivateKey
	pubKey []byte
}

var _ attest.Signer = (*Keystore)(nil)

// FromFile loads a hex-encoded secp256k1 private key from a file.
func FromFile(path string) (*Keystore, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyNotFound, path, err)
	}
	return newKeystore(key), nil
}

// FromEnv loads a hex-encoded secp256k1 private key from an environment variable.
func FromEnv(envVar string) (*Keystore, error) {
	hexKey := strings.TrimSpace(os.Getenv(envVar))
	if hexKey == "" {
		return nil, fmt.Errorf("%w: environment variable %s is empty", ErrKeyNotFound, envVar)
	}
	return FromHex(hexKey)
}

// FromHex builds a keystore from a hex-encoded secp256k1 private key.
func FromHex(hexKey string) (*Keystore, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}
	return newKeystore(key), nil
}

// Generate creates a keystore with a fresh key. Intended for tests and
// development; production keys are provisioned externally.
func Generate() (*Keystore, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newKeystore(key), nil
}

func newKeystore(key *ecdsa.PrivateKey) *Keystore {
	return &Keystore{
		key:    key,
		pubKey: crypto.FromECDSAPub(&key.PublicKey),
	}
}

// Sign signs the keccak256 digest of the payload and returns the 65-byte
// [R || S || V] signature.
func (k *Keystore) Sign(payload []byte) ([]byte, error) {
	if k == nil || k.key == nil {
		return nil, fmt.Errorf("%w", ErrKeyNotFound)
	}
	digest := crypto.Keccak256(payload)
	signature, err := crypto.Sign(digest, k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return signature, nil
}

// PublicKey returns the uncompressed secp256k1 public key bytes.
func (k *Keystore) PublicKey() []byte {
	if k == nil {
		return nil
	}
	return k.pubKey
}

// Verify checks a signature produced by Sign against the payload and public key.
func Verify(pubKey, payload, signature []byte) error {
	if len(signature) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(signature))
	}
	digest := crypto.Keccak256(payload)
	// Drop the recovery id; VerifySignature expects 64 bytes.
	if !crypto.VerifySignature(pubKey, digest, signature[:crypto.SignatureLength-1]) {
		return fmt.Errorf("%w", ErrInvalidSignature)
	}
	return nil
}
