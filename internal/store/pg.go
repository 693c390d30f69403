package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/unmask-labs/certmint/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&schema.Certificate{}, &schema.MintedToken{})
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateCertificate persists a new certificate record
func (s *pgStore) CreateCertificate(ctx context.Context, cert *schema.Certificate) error {
	if err := s.db.WithContext(ctx).Create(cert).Error; err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

// GetCertificateByID retrieves a certificate by its public id
func (s *pgStore) GetCertificateByID(ctx context.Context, id string) (*schema.Certificate, error) {
	var cert schema.Certificate
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &cert, nil
}

// CreateMintedToken persists the audit record for a confirmed mint
func (s *pgStore) CreateMintedToken(ctx context.Context, token *schema.MintedToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create minted token: %w", err)
	}
	return nil
}

// ListMintedTokensByOwner retrieves the mint audit records for an owner address
func (s *pgStore) ListMintedTokensByOwner(ctx context.Context, ownerAddress string) ([]schema.MintedToken, error) {
	var tokens []schema.MintedToken
	err := s.db.WithContext(ctx).
		Where("owner_address = ?", ownerAddress).
		Order("token_id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list minted tokens: %w", err)
	}
	return tokens, nil
}
