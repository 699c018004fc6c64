package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// BuildDeposit moves a player's buy-in from their wallet into the game
// escrow. The player is the fee payer; their wallet adapter signs it.
func BuildDeposit(from, escrow solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	return solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, escrow).Build(),
		},
		blockhash,
		solana.TransactionPayer(from),
	)
}

// BuildDistribution pays each winner their share and routes the collected
// fee to the house. The escrow is both fee payer and sole signer.
func BuildDistribution(escrow Escrow, winners []solana.PublicKey, perWinnerLamports uint64, house solana.PublicKey, houseFeeLamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	instrs := make([]solana.Instruction, 0, len(winners)+1)
	for _, w := range winners {
		instrs = append(instrs, system.NewTransferInstruction(perWinnerLamports, escrow.PublicKey(), w).Build())
	}
	if houseFeeLamports > 0 {
		instrs = append(instrs, system.NewTransferInstruction(houseFeeLamports, escrow.PublicKey(), house).Build())
	}

	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(escrow.PublicKey()))
	if err != nil {
		return nil, err
	}
	if err := signWithEscrow(tx, escrow); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildRefund returns a leaving player's gross buy-in from the escrow.
func BuildRefund(escrow Escrow, to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, escrow.PublicKey(), to).Build(),
		},
		blockhash,
		solana.TransactionPayer(escrow.PublicKey()),
	)
	if err != nil {
		return nil, err
	}
	if err := signWithEscrow(tx, escrow); err != nil {
		return nil, err
	}
	return tx, nil
}

func signWithEscrow(tx *solana.Transaction, escrow Escrow) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(escrow.PublicKey()) {
			return &escrow.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign with escrow: %w", err)
	}
	return nil
}
