package certificate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/store"
	"github.com/unmask-labs/certmint/internal/store/schema"
)

// CreateParams holds the inputs for issuing a certificate
type CreateParams struct {
	RealPct         float64
	FakePct         float64
	FileHash        string
	ClientAddress   string
	ContractAddress string
	IssuedAt        time.Time
}

// Builder issues certificates. Ids are ULIDs, so repeated calls with
// identical inputs always produce distinct certificates, and the id exists
// before any chain mutation happens.
type Builder struct {
	store   store.Store
	baseURL string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewBuilder creates a certificate builder. baseURL is the public URL prefix
// certificate ids are templated into.
func NewBuilder(s store.Store, baseURL string) *Builder {
	return &Builder{
		store:   s,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec,G404 // ids need uniqueness, not secrecy
	}
}

// Create issues and persists a new certificate
func (b *Builder) Create(ctx context.Context, params CreateParams) (*domain.Certificate, error) {
	b.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(params.IssuedAt), b.entropy).String()
	b.mu.Unlock()

	record := &schema.Certificate{
		ID:              id,
		RealPct:         params.RealPct,
		FakePct:         params.FakePct,
		FileHash:        params.FileHash,
		ClientAddress:   params.ClientAddress,
		ContractAddress: params.ContractAddress,
		IssuedAt:        params.IssuedAt,
	}
	if err := b.store.CreateCertificate(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist certificate: %w", err)
	}

	return &domain.Certificate{
		ID:              record.ID,
		RealPct:         record.RealPct,
		FakePct:         record.FakePct,
		FileHash:        record.FileHash,
		ClientAddress:   record.ClientAddress,
		ContractAddress: record.ContractAddress,
		IssuedAt:        record.IssuedAt,
	}, nil
}

// Get retrieves a previously issued certificate by id
func (b *Builder) Get(ctx context.Context, id string) (*domain.Certificate, error) {
	record, err := b.store.GetCertificateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCertificateNotFound, id)
	}
	return &domain.Certificate{
		ID:              record.ID,
		RealPct:         record.RealPct,
		FakePct:         record.FakePct,
		FileHash:        record.FileHash,
		ClientAddress:   record.ClientAddress,
		ContractAddress: record.ContractAddress,
		IssuedAt:        record.IssuedAt,
	}, nil
}

// URL returns the public certificate URL for an id
func (b *Builder) URL(id string) string {
	return b.baseURL + "/certificate/" + id
}
