// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/volumewars/volumewars-bot/internal/storage"
	"github.com/volumewars/volumewars-bot/internal/storage/models"
)

// gormLogger bridges GORM logging onto zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(4217)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(4217)")

	err = p.db.AutoMigrate(
		&models.Winner{},
		&models.Burn{},
		&models.RewardTransfer{},
		&models.GlobalStats{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (p *postgresStorage) SaveWinner(ctx context.Context, winner *models.Winner) error {
	return p.db.WithContext(ctx).Create(winner).Error
}

func (p *postgresStorage) ListWinners(ctx context.Context, limit, offset int) ([]*models.Winner, error) {
	var winners []*models.Winner
	err := p.db.WithContext(ctx).
		Order("round desc").
		Limit(limit).
		Offset(offset).
		Find(&winners).Error
	return winners, err
}

func (p *postgresStorage) SaveBurn(ctx context.Context, burn *models.Burn) error {
	return p.db.WithContext(ctx).Create(burn).Error
}

func (p *postgresStorage) SaveRewardTransfer(ctx context.Context, transfer *models.RewardTransfer) error {
	return p.db.WithContext(ctx).Create(transfer).Error
}

// GetGlobalStats returns the singleton stats row, creating it on first
// use.
func (p *postgresStorage) GetGlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	var stats models.GlobalStats
	err := p.db.WithContext(ctx).
		Where(models.GlobalStats{BaseModel: models.BaseModel{ID: 1}}).
		FirstOrCreate(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (p *postgresStorage) UpdateGlobalStats(ctx context.Context, stats *models.GlobalStats) error {
	stats.ID = 1
	return p.db.WithContext(ctx).Save(stats).Error
}
