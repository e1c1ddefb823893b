// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// migrationLockID is the advisory lock held while AutoMigrate runs.
const migrationLockID = 4242

// gormLogger routes GORM logs into zap.
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
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

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= logger.Error:
		l.zapLogger.Error("query failed", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Debug("query", fields...)
	}
}

// Store implements storage.Storage on PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ storage.Storage = (*Store)(nil)

// NewStorage connects to dsn and configures the connection pool.
func NewStorage(dsn string, zapLogger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{
		db:     db,
		logger: zapLogger.Named("postgres"),
	}, nil
}

// RunMigrations creates or updates the launchpad tables under an advisory lock.
func (s *Store) RunMigrations() error {
	var lockObtained bool
	if err := s.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer s.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	err := s.db.AutoMigrate(
		&models.Token{},
		&models.StarredToken{},
		&models.Comment{},
		&models.UserPoints{},
		&models.UserProfile{},
		&models.Proposal{},
		&models.Vote{},
		&models.WhitelistEntry{},
		&models.SpentFee{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Info("Migrations applied")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps GORM errors onto the storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	default:
		return err
	}
}

// Tokens

func (s *Store) CreateToken(ctx context.Context, token *models.Token) error {
	return translate(s.db.WithContext(ctx).Create(token).Error)
}

func (s *Store) GetToken(ctx context.Context, contractAddress string) (*models.Token, error) {
	var token models.Token
	err := s.db.WithContext(ctx).
		Where("contract_address = ?", models.NormalizeAddress(contractAddress)).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*models.Token, error) {
	var tokens []*models.Token
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&tokens).Error
	return tokens, translate(err)
}

func (s *Store) LinkExists(ctx context.Context, link string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("intuition_link = ?", link).
		Limit(1).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) UpdateTokenMarket(ctx context.Context, contractAddress string, supply uint64, price, marketCap float64) error {
	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("contract_address = ?", models.NormalizeAddress(contractAddress)).
		Updates(map[string]interface{}{
			"current_supply": supply,
			"current_price":  price,
			"market_cap":     marketCap,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Stars

func (s *Store) AddStar(ctx context.Context, userAddress, tokenAddress string) error {
	return translate(s.db.WithContext(ctx).Create(&models.StarredToken{
		UserAddress:  models.NormalizeAddress(userAddress),
		TokenAddress: models.NormalizeAddress(tokenAddress),
	}).Error)
}

func (s *Store) RemoveStar(ctx context.Context, userAddress, tokenAddress string) error {
	return translate(s.db.WithContext(ctx).
		Where("user_address = ? AND token_address = ?",
			models.NormalizeAddress(userAddress), models.NormalizeAddress(tokenAddress)).
		Delete(&models.StarredToken{}).Error)
}

func (s *Store) IsStarred(ctx context.Context, userAddress, tokenAddress string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.StarredToken{}).
		Where("user_address = ? AND token_address = ?",
			models.NormalizeAddress(userAddress), models.NormalizeAddress(tokenAddress)).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) StarredTokens(ctx context.Context, userAddress string) ([]string, error) {
	var addrs []string
	err := s.db.WithContext(ctx).Model(&models.StarredToken{}).
		Where("user_address = ?", models.NormalizeAddress(userAddress)).
		Order("created_at desc").
		Pluck("token_address", &addrs).Error
	return addrs, translate(err)
}

// Fees

func (s *Store) ClaimFee(ctx context.Context, fee *models.SpentFee) error {
	fee.TxHash = models.NormalizeHash(fee.TxHash)
	return translate(s.db.WithContext(ctx).Create(fee).Error)
}

func (s *Store) ReleaseFee(ctx context.Context, txHash string) error {
	return translate(s.db.WithContext(ctx).
		Where("tx_hash = ?", models.NormalizeHash(txHash)).
		Delete(&models.SpentFee{}).Error)
}

// Comments

func (s *Store) AddComment(ctx context.Context, comment *models.Comment) error {
	return translate(s.db.WithContext(ctx).Create(comment).Error)
}

func (s *Store) ListComments(ctx context.Context, tokenAddress string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.db.WithContext(ctx).
		Where("token_address = ?", models.NormalizeAddress(tokenAddress)).
		Order("created_at desc").
		Find(&comments).Error
	return comments, translate(err)
}

// Points

func (s *Store) GetPoints(ctx context.Context, walletAddress string) (*models.UserPoints, error) {
	var p models.UserPoints
	err := s.db.WithContext(ctx).
		Where("wallet_address = ?", models.NormalizeAddress(walletAddress)).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) UpsertPoints(ctx context.Context, points *models.UserPoints) error {
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_buy_volume", "total_sell_volume", "total_volume",
			"trading_points", "comment_points", "points", "last_updated", "updated_at",
		}),
	}).Create(points).Error)
}

func (s *Store) TopByPoints(ctx context.Context, limit int) ([]*models.UserPoints, error) {
	var rows []*models.UserPoints
	err := s.db.WithContext(ctx).Order("points desc").Limit(limit).Find(&rows).Error
	return rows, translate(err)
}

func (s *Store) TopByVolume(ctx context.Context, limit int) ([]*models.UserPoints, error) {
	var rows []*models.UserPoints
	err := s.db.WithContext(ctx).
		Where("total_volume > 0").
		Order("total_volume desc").
		Limit(limit).
		Find(&rows).Error
	return rows, translate(err)
}

func (s *Store) DisplayNames(ctx context.Context, walletAddresses []string) (map[string]string, error) {
	names := make(map[string]string, len(walletAddresses))
	if len(walletAddresses) == 0 {
		return names, nil
	}

	var profiles []models.UserProfile
	err := s.db.WithContext(ctx).
		Where("wallet_address IN ?", walletAddresses).
		Find(&profiles).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, p := range profiles {
		if p.DisplayName != "" {
			names[p.WalletAddress] = p.DisplayName
		}
	}
	return names, nil
}

// Governance

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListProposals(ctx context.Context) ([]*models.Proposal, error) {
	var ps []*models.Proposal
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) SetProposalStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) HasVoted(ctx context.Context, id uuid.UUID, voterAddress string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("proposal_id = ? AND voter_address = ?", id, models.NormalizeAddress(voterAddress)).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) RecordVote(ctx context.Context, vote *models.Vote) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vote).Error; err != nil {
			return translate(err)
		}

		countCol, powerCol := "no_votes", "no_voting_power"
		if vote.Choice == models.VoteYes {
			countCol, powerCol = "yes_votes", "yes_voting_power"
		}

		res := tx.Model(&models.Proposal{}).
			Where("id = ?", vote.ProposalID).
			Updates(map[string]interface{}{
				countCol: gorm.Expr(countCol + " + 1"),
				powerCol: gorm.Expr(powerCol+" + ?", vote.VotingPower),
			})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListVotes(ctx context.Context, id uuid.UUID) ([]*models.Vote, error) {
	var votes []*models.Vote
	err := s.db.WithContext(ctx).
		Where("proposal_id = ?", id).
		Order("created_at desc").
		Find(&votes).Error
	return votes, translate(err)
}

func (s *Store) AddWhitelist(ctx context.Context, entry *models.WhitelistEntry) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *Store) RemoveWhitelist(ctx context.Context, id uuid.UUID, walletAddress string) error {
	return translate(s.db.WithContext(ctx).
		Where("proposal_id = ? AND wallet_address = ?", id, models.NormalizeAddress(walletAddress)).
		Delete(&models.WhitelistEntry{}).Error)
}

func (s *Store) IsWhitelisted(ctx context.Context, id uuid.UUID, walletAddress string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WhitelistEntry{}).
		Where("proposal_id = ? AND wallet_address = ?", id, models.NormalizeAddress(walletAddress)).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) ListWhitelist(ctx context.Context, id uuid.UUID) ([]*models.WhitelistEntry, error) {
	var entries []*models.WhitelistEntry
	err := s.db.WithContext(ctx).Where("proposal_id = ?", id).Find(&entries).Error
	return entries, translate(err)
}
