package chain

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Escrow is the per-game keypair that custodies buy-ins until settlement.
// The secret key is held (and persisted) in the clear; custody security is
// an explicit non-goal.
type Escrow struct {
	key solana.PrivateKey
}

func NewEscrow() Escrow {
	return Escrow{key: solana.NewWallet().PrivateKey}
}

func EscrowFromSecret(secret []byte) (Escrow, error) {
	if len(secret) != 64 {
		return Escrow{}, fmt.Errorf("escrow secret: got %d bytes, want 64", len(secret))
	}
	return Escrow{key: solana.PrivateKey(secret)}, nil
}

func (e Escrow) PublicKey() solana.PublicKey { return e.key.PublicKey() }

func (e Escrow) Secret() []byte { return []byte(e.key) }

// MarshalSecret encodes the secret as a JSON byte array, the format the
// games table has always stored.
func MarshalSecret(secret []byte) string {
	nums := make([]int, len(secret))
	for i, b := range secret {
		nums[i] = int(b)
	}
	out, _ := json.Marshal(nums)
	return string(out)
}

func UnmarshalSecret(s string) ([]byte, error) {
	var nums []int
	if err := json.Unmarshal([]byte(s), &nums); err != nil {
		return nil, err
	}
	secret := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("escrow secret: byte out of range at %d", i)
		}
		secret[i] = byte(n)
	}
	return secret, nil
}
