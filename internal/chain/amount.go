package chain

import (
	"math"

	"github.com/gagliardetto/solana-go"
)

// SolToLamports floors, matching how buy-ins were charged historically.
// Whatever falls below one lamport is simply dropped.
func SolToLamports(sol float64) uint64 {
	return uint64(math.Floor(sol * float64(solana.LAMPORTS_PER_SOL)))
}

func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
