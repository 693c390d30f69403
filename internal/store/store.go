package store

import (
	"context"

	"github.com/unmask-labs/certmint/internal/store/schema"
)

// Store defines the persistence operations for certificates and mint records
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// CreateCertificate persists a new certificate record
	CreateCertificate(ctx context.Context, cert *schema.Certificate) error

	// GetCertificateByID retrieves a certificate by its public id.
	// Returns (nil, nil) when no record exists.
	GetCertificateByID(ctx context.Context, id string) (*schema.Certificate, error)

	// CreateMintedToken persists the audit record for a confirmed mint
	CreateMintedToken(ctx context.Context, token *schema.MintedToken) error

	// ListMintedTokensByOwner retrieves the mint audit records for an owner address
	ListMintedTokensByOwner(ctx context.Context, ownerAddress string) ([]schema.MintedToken, error)
}
