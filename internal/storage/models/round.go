// internal/storage/models/round.go
package models

// Winner is one round's winning wallet. Rows are only written with a
// confirmed payment signature.
type Winner struct {
	BaseModel
	Wallet    string  `gorm:"index;not null;type:varchar(44)"`
	Volume    float64 `gorm:"type:decimal(20,9);not null"`
	Reward    float64 `gorm:"type:decimal(20,9);not null"`
	Signature string  `gorm:"unique;not null;type:varchar(88)"`
	Round     int64   `gorm:"index;not null"`
}

// Burn records one buyback-and-burn execution.
type Burn struct {
	BaseModel
	SolSpent     float64 `gorm:"type:decimal(20,9);not null"`
	TokensBurned float64 `gorm:"type:decimal(20,9);not null"`
	Signature    string  `gorm:"unique;not null;type:varchar(88)"`
	Round        int64   `gorm:"index;not null"`
}

// RewardTransfer records one payment out of the reward wallet.
type RewardTransfer struct {
	BaseModel
	Wallet    string  `gorm:"index;not null;type:varchar(44)"`
	Amount    float64 `gorm:"type:decimal(20,9);not null"`
	Signature string  `gorm:"unique;not null;type:varchar(88)"`
	Round     int64   `gorm:"index;not null"`
}

// GlobalStats is the singleton row of cumulative lifetime totals.
type GlobalStats struct {
	BaseModel
	TotalRoundsCompleted int64   `gorm:"not null;default:0"`
	TotalRewardsPaid     float64 `gorm:"type:decimal(20,9);not null;default:0"`
	TotalSupplyBurned    float64 `gorm:"type:decimal(20,9);not null;default:0"`
	LastRound            int64   `gorm:"not null;default:0"`
	BaseReward           float64 `gorm:"type:decimal(20,9);not null;default:0"`
}
