// internal/blockchain/solana/confirm.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrConfirmationTimeout is returned when a transaction does not reach
// confirmed status within the confirmation window.
var ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

// ErrTransactionFailed is returned when a transaction landed on chain
// but failed to execute.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// SendAndConfirm submits a signed transaction with bounded retries and
// waits for on-chain confirmation. Retries apply only to submission;
// once a signature exists the outcome is resolved by polling, never by
// resubmitting a potentially duplicated transfer.
func (c *Client) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	operation := func() (solana.Signature, error) {
		sig, err := c.sendTransaction(ctx, tx)
		if err != nil {
			c.logger.Warn("Retrying transaction send", zap.Error(err))
			return solana.Signature{}, err
		}
		return sig, nil
	}

	sig, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries),
	)
	if err != nil {
		return solana.Signature{}, err
	}

	status, err := c.AwaitConfirmation(ctx, sig)
	if err != nil {
		c.logger.Error("Transaction confirmation failed",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return sig, err
	}
	if status.Status == "failed" {
		return sig, fmt.Errorf("%w: %s", ErrTransactionFailed, status.Error)
	}

	return sig, nil
}

// AwaitConfirmation polls signature status until the transaction is
// confirmed, fails, or the confirmation window elapses.
func (c *Client) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*TxStatus, error) {
	ticker := time.NewTicker(confirmationPollEvery)
	defer ticker.Stop()

	deadline := time.After(c.confirmationTime)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
			status, err := c.getSignatureStatus(ctx, signature)
			if err != nil {
				c.logger.Warn("Confirmation check failed", zap.Error(err))
				continue
			}
			if status.Status == "confirmed" || status.Status == "finalized" || status.Status == "failed" {
				return status, nil
			}
		}
	}
}

func (c *Client) getSignatureStatus(ctx context.Context, signature solana.Signature) (*TxStatus, error) {
	client := c.getNextClient()
	if client == nil {
		return nil, errors.New("no active RPC clients available")
	}

	response, err := client.Client.GetSignatureStatuses(ctx, false, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	txStatus := &TxStatus{
		Signature: signature.String(),
		Status:    "pending",
		Timestamp: time.Now(),
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return txStatus, nil
	}

	status := response.Value[0]
	txStatus.Slot = status.Slot
	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}

	return txStatus, nil
}
