// Package solana provides helpers for working with Solana account addresses.
package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLength is the size of a decoded Solana public key.
const AddressLength = 32

// TokenProgramID is the SPL Token program.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// ErrInvalidAddress is returned when a string is not a base58 encoded 32-byte key.
var ErrInvalidAddress = errors.New("invalid solana address")

// ParseAddress decodes a base58 address into its 32 raw bytes.
func ParseAddress(addr string) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if len(decoded) != AddressLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, addr, len(decoded))
	}
	return decoded, nil
}

// ValidateAddress returns an error if addr is not a valid address.
func ValidateAddress(addr string) error {
	_, err := ParseAddress(addr)
	return err
}

// IsOnCurve reports whether point is a valid ed25519 curve point.
// Keypair-generated accounts are on the curve, program derived addresses are not.
func IsOnCurve(point []byte) bool {
	if len(point) != AddressLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsProgramDerived reports whether addr is a valid off-curve address.
func IsProgramDerived(addr string) bool {
	raw, err := ParseAddress(addr)
	if err != nil {
		return false
	}
	return !IsOnCurve(raw)
}

// AddressKind labels an address as "keypair" or "pda" for logging.
func AddressKind(addr string) string {
	if IsProgramDerived(addr) {
		return "pda"
	}
	return "keypair"
}

// DerivePDA derives a program derived address for seeds under programID.
// The first bump (from 255 down) that yields an off-curve hash wins.
func DerivePDA(seeds [][]byte, programID string) (string, error) {
	program, err := ParseAddress(programID)
	if err != nil {
		return "", fmt.Errorf("parse program id: %w", err)
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 64)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, program...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !IsOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no viable bump for seeds")
}
