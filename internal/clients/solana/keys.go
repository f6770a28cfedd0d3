package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// PublicKeyLength is the size of an account address in bytes.
const PublicKeyLength = 32

// Well-known program addresses.
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID       = MustPublicKey("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// PublicKey is an ed25519 account address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return PublicKey{}, errors.Wrapf(err, "decode address %q", s)
	}
	if len(raw) != PublicKeyLength {
		return PublicKey{}, errors.Errorf("address %q has %d bytes, want %d", s, len(raw), PublicKeyLength)
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// MustPublicKey is ParsePublicKey for constants.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e. can hold a private key.
func (pk PublicKey) IsOnCurve() bool {
	return isOnCurve(pk[:])
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ValidateWalletAddress checks that s is a base58 address that can belong to a wallet.
func ValidateWalletAddress(s string) error {
	pk, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	if !pk.IsOnCurve() {
		return errors.Errorf("address %s is off-curve and cannot be a wallet", s)
	}
	return nil
}

// Keypair is a wallet signing key.
type Keypair struct {
	private ed25519.PrivateKey
}

// ParseKeypair accepts a base58 64-byte secret key or a JSON byte array as written by keygen tools.
// A value that names an existing file is read from disk first.
func ParseKeypair(secret string) (*Keypair, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("empty wallet key")
	}

	if data, err := os.ReadFile(secret); err == nil {
		secret = strings.TrimSpace(string(data))
	}

	var raw []byte
	if strings.HasPrefix(secret, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(secret), &ints); err != nil {
			return nil, errors.Wrap(err, "decode keypair byte array")
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("keypair byte %d out of range", i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(secret)
		if err != nil {
			return nil, errors.Wrap(err, "decode base58 keypair")
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair has %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}

	priv := ed25519.PrivateKey(raw)
	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !derived.Equal(priv) {
		return nil, errors.New("keypair public half does not match its seed")
	}

	return &Keypair{private: priv}, nil
}

// NewKeypairFromSeed builds a keypair from a 32-byte seed.
func NewKeypairFromSeed(seed []byte) *Keypair {
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}
}

// PublicKey returns the wallet address.
func (k *Keypair) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.private.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs message with the wallet key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}
