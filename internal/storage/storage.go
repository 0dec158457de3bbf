// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/volumewars/volumewars-bot/internal/storage/models"
)

// Storage is the durable store for round outcomes. The core appends
// winner, burn and reward-transfer records and maintains one cumulative
// global-stats row; no cross-table atomicity is assumed.
type Storage interface {
	SaveWinner(ctx context.Context, winner *models.Winner) error
	ListWinners(ctx context.Context, limit, offset int) ([]*models.Winner, error)

	SaveBurn(ctx context.Context, burn *models.Burn) error
	SaveRewardTransfer(ctx context.Context, transfer *models.RewardTransfer) error

	GetGlobalStats(ctx context.Context) (*models.GlobalStats, error)
	UpdateGlobalStats(ctx context.Context, stats *models.GlobalStats) error

	RunMigrations() error
}
