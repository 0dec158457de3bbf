// internal/buyback/jupiter.go
package buyback

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var wrappedSolMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// JupiterClient implements SwapProvider against the Jupiter v6 HTTP
// API.
type JupiterClient struct {
	baseURL     string
	outputMint  solana.PublicKey
	slippageBps int
	client      *http.Client
	logger      *zap.Logger
}

func NewJupiterClient(baseURL string, outputMint solana.PublicKey, slippageBps int, logger *zap.Logger) *JupiterClient {
	return &JupiterClient{
		baseURL:     baseURL,
		outputMint:  outputMint,
		slippageBps: slippageBps,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger.Named("jupiter"),
	}
}

type quoteResponse struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
}

// Quote asks the aggregator for the expected token output for the given
// SOL input.
func (j *JupiterClient) Quote(ctx context.Context, inputLamports uint64) (*SwapQuote, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d",
		j.baseURL, wrappedSolMint, j.outputMint, inputLamports, j.slippageBps)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount %q: %w", parsed.OutAmount, err)
	}

	return &SwapQuote{
		InAmount:  inputLamports,
		OutAmount: outAmount,
		Raw:       body,
	}, nil
}

type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// BuildSwap asks the aggregator to build the swap transaction for the
// quoted route. The returned transaction still needs signing.
func (j *JupiterClient) BuildSwap(ctx context.Context, quote *SwapQuote, user solana.PublicKey) (*solana.Transaction, error) {
	payload, err := json.Marshal(swapRequest{
		QuoteResponse:    quote.Raw,
		UserPublicKey:    user.String(),
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read swap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed swapResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode swap response: %w", err)
	}

	rawTx, err := base64.StdEncoding.DecodeString(parsed.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, fmt.Errorf("failed to parse swap transaction: %w", err)
	}

	j.logger.Debug("Swap transaction built",
		zap.Uint64("in_lamports", quote.InAmount),
		zap.Uint64("expected_out", quote.OutAmount))

	return tx, nil
}
