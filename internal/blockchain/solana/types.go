// internal/blockchain/solana/types.go
package solana

import (
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	defaultTimeout          = 15 * time.Second
	maxRetries              = 3
	retryDelay              = 500 * time.Millisecond
	confirmationPollEvery   = 500 * time.Millisecond
	defaultConfirmationTime = 60 * time.Second
)

// Client multiplexes requests over a set of RPC endpoints with
// round-robin rotation and per-endpoint health tracking.
type Client struct {
	rpcClients []*RPCClient
	currIndex  int
	mutex      sync.Mutex
	logger     *zap.Logger

	confirmationTime time.Duration
}

// RPCClient wraps a single RPC endpoint.
type RPCClient struct {
	Client  *rpc.Client
	URL     string
	active  bool
	mu      sync.Mutex
	metrics *RPCMetrics
}

// RPCMetrics tracks per-endpoint request outcomes.
type RPCMetrics struct {
	Requests  uint64
	Failures  uint64
	AvgRTT    time.Duration
	LastError time.Time
}

func (rc *RPCClient) isActive() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.active
}

func (rc *RPCClient) setActive(active bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.active = active
}

func (rc *RPCClient) updateMetrics(success bool, rtt time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.metrics.Requests++
	if rc.metrics.AvgRTT == 0 {
		rc.metrics.AvgRTT = rtt
	} else {
		rc.metrics.AvgRTT = (rc.metrics.AvgRTT + rtt) / 2
	}
	if !success {
		rc.metrics.Failures++
		rc.metrics.LastError = time.Now()
	}
}

// TxStatus is the terminal status of a submitted transaction.
type TxStatus struct {
	Signature     string
	Status        string // "pending", "confirmed", "finalized", "failed"
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}

// SolToLamports converts a SOL amount to lamports, rounding to the
// nearest lamport.
func SolToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(math.Round(sol * float64(solana.LAMPORTS_PER_SOL)))
}

// LamportsToSol converts lamports to SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
