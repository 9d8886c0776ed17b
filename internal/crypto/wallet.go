// Package crypto implements the trading wallet: deterministic keypair
// derivation from a seed phrase and detached signing of encoded payloads.
package crypto

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// seedIterations and seedLen follow the BIP-39 seed derivation used by
	// every wallet the venue supports.
	seedIterations = 2048
	seedLen        = 64
	mnemonicSalt   = "mnemonic"

	// ReadOnlyAddress is the sentinel account id of a wallet constructed
	// without a seed phrase.
	ReadOnlyAddress = "READ_ONLY"

	// SignatureScheme is the multi-signature variant name submitted
	// alongside every signature.
	SignatureScheme = "Ecdsa"
)

// Wallet holds the derived key material for one trading account. The private
// key never leaves this package; callers only see Address and Sign.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewWallet derives a wallet from a seed phrase. An empty phrase yields a
// read-only wallet that can query public data but never sign.
func NewWallet(seedPhrase string) (*Wallet, error) {
	mnemonic := normalizeMnemonic(seedPhrase)
	if mnemonic == "" {
		return &Wallet{address: ReadOnlyAddress}, nil
	}

	seed := pbkdf2.Key([]byte(mnemonic), []byte(mnemonicSalt), seedIterations, seedLen, sha512.New)

	pk, err := ethcrypto.ToECDSA(seed[:32])
	if err != nil {
		return nil, fmt.Errorf("crypto: derive private key: %w", err)
	}

	// The venue identifies ECDSA accounts by the blake2b-256 hash of the
	// compressed public key.
	compressed := ethcrypto.CompressPubkey(&pk.PublicKey)
	accountID := blake2b.Sum256(compressed)

	return &Wallet{
		privateKey: pk,
		address:    "0x" + hex.EncodeToString(accountID[:]),
	}, nil
}

// Address returns the account id derived from the wallet's public key, or
// ReadOnlyAddress for a read-only wallet.
func (w *Wallet) Address() string {
	return w.address
}

// ReadOnly reports whether the wallet has no key material.
func (w *Wallet) ReadOnly() bool {
	return w.privateKey == nil
}

// Sign produces a 65-byte recoverable secp256k1 signature over the blake2b
// digest of payload. Signing with a read-only wallet is a programming error
// and panics; the read-only mode must be checked at construction time, not
// per call.
func (w *Wallet) Sign(payload []byte) ([]byte, error) {
	if w.privateKey == nil {
		panic("crypto: Sign called on read-only wallet")
	}

	digest := blake2b.Sum256(payload)
	sig, err := ethcrypto.Sign(digest[:], w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign payload: %w", err)
	}
	return sig, nil
}

// SignHex is Sign with the signature hex-encoded for transport.
func (w *Wallet) SignHex(payload []byte) (string, error) {
	sig, err := w.Sign(payload)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// normalizeMnemonic lowercases the phrase and collapses all whitespace so the
// same words always derive the same key.
func normalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
