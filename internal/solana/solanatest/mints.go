// Package solanatest provides deterministic addresses for tests.
package solanatest

import (
	"fmt"

	"solana-token-selector/internal/solana"
)

// Mint returns a stable, valid mint address for label.
func Mint(label string) string {
	addr, err := solana.DerivePDA([][]byte{[]byte("mint"), []byte(label)}, solana.TokenProgramID)
	if err != nil {
		panic(fmt.Sprintf("derive mint %q: %v", label, err))
	}
	return addr
}

// Mints returns n distinct mint addresses sharing prefix.
func Mints(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Mint(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}
