// internal/fees/fees.go
package fees

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	solbc "github.com/volumewars/volumewars-bot/internal/blockchain/solana"
	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// Chain is the blockchain capability the fee pipeline needs.
type Chain interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// sendTransfer builds, signs and submits a single SOL transfer,
// returning once it is confirmed.
func sendTransfer(ctx context.Context, chain Chain, from *wallet.Wallet, to solana.PublicKey, amountSOL float64) (solana.Signature, error) {
	blockhash, err := chain.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get blockhash: %w", err)
	}

	ix := system.NewTransferInstruction(
		solbc.SolToLamports(amountSOL),
		from.PublicKey,
		to,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(from.PublicKey),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := from.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return chain.SendAndConfirm(ctx, tx)
}
