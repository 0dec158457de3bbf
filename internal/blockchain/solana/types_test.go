// internal/blockchain/solana/types_test.go
package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLamportConversions(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000), SolToLamports(1.0))
	assert.Equal(t, uint64(1_000_000), SolToLamports(0.001))
	assert.InDelta(t, 1.5, LamportsToSol(1_500_000_000), 1e-9)
	assert.InDelta(t, 0.98, LamportsToSol(SolToLamports(0.98)), 1e-9)
	assert.Zero(t, SolToLamports(0))
}
