// internal/ingest/types.go
package ingest

// TradeNotification is one inbound trade event in the enhanced-webhook
// shape: fee payer, flat transfer lists, and an optional structured
// swap event.
type TradeNotification struct {
	Signature       string           `json:"signature"`
	FeePayer        string           `json:"feePayer"`
	Timestamp       int64            `json:"timestamp"`
	Type            string           `json:"type"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	Events          *Events          `json:"events"`
}

// NativeTransfer is a SOL movement inside the transaction.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          uint64 `json:"amount"` // lamports
}

// TokenTransfer is an SPL token movement inside the transaction.
type TokenTransfer struct {
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
}

// Events carries the optional parsed event section.
type Events struct {
	Swap *SwapEvent `json:"swap"`
}

// SwapEvent is the structured swap description when the notification
// source recognized the transaction as a swap.
type SwapEvent struct {
	NativeInput  *SwapLeg `json:"nativeInput"`
	NativeOutput *SwapLeg `json:"nativeOutput"`
}

// SwapLeg is one native-SOL side of a swap.
type SwapLeg struct {
	Account string `json:"account"`
	Amount  string `json:"amount"` // lamports, as a decimal string
}

// InvolvesMint reports whether any token transfer touches the tracked
// mint.
func (n *TradeNotification) InvolvesMint(mint string) bool {
	for _, t := range n.TokenTransfers {
		if t.Mint == mint {
			return true
		}
	}
	return false
}
