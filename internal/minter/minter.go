package minter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/assets"
	"github.com/unmask-labs/certmint/internal/certificate"
	"github.com/unmask-labs/certmint/internal/classifier"
	"github.com/unmask-labs/certmint/internal/collectible"
	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/logger"
	"github.com/unmask-labs/certmint/internal/store"
	"github.com/unmask-labs/certmint/internal/store/schema"
)

const (
	tokenName        = "Deep Fake Certification"
	tokenDescription = "Deep Fake Certification"
)

// MintRequest holds the inputs for a mint call
type MintRequest struct {
	UserAddress   string
	FileUID       string
	TransactionID string
}

// MintResult is the composed response bundle for a confirmed mint
type MintResult struct {
	PolygonURL     string `json:"polygon_url"`
	CertificateURL string `json:"certificate_url"`
	TokenID        uint64 `json:"token_id"`
	TokenURI       string `json:"token_uri"`
}

// Service contains the business logic shared by the REST handlers
//
//go:generate mockgen -source=minter.go -destination=../mocks/minter.go -package=mocks -mock_names=Service=MockService
type Service interface {
	// UploadAsset stores an uploaded file and returns its asset id
	UploadAsset(ctx context.Context, clientAddress, filename string, r io.Reader) (string, error)

	// MintCertificate runs the full workflow: classify, hash, issue a
	// certificate, mint the token and compose the response bundle
	MintCertificate(ctx context.Context, req MintRequest) (*MintResult, error)

	// ListUserTokens enumerates the tokens currently owned by an address
	ListUserTokens(ctx context.Context, userAddress string) ([]domain.UserToken, error)

	// GetTokenURI fetches and decodes a token's metadata document
	GetTokenURI(ctx context.Context, tokenID uint64) (json.RawMessage, error)

	// GetCertificate retrieves an issued certificate by id
	GetCertificate(ctx context.Context, id string) (*domain.Certificate, error)
}

type service struct {
	assets      assets.Store
	classifier  classifier.Classifier
	certs       *certificate.Builder
	gateway     collectible.Gateway
	store       store.Store
	clock       adapter.Clock
	json        adapter.JSON
	explorerURL string
}

// NewService creates the mint service. explorerURLTemplate is a format string
// taking the contract address and a token id.
func NewService(
	assetStore assets.Store,
	clf classifier.Classifier,
	certs *certificate.Builder,
	gateway collectible.Gateway,
	st store.Store,
	clock adapter.Clock,
	jsonAdapter adapter.JSON,
	explorerURLTemplate string,
) Service {
	return &service{
		assets:      assetStore,
		classifier:  clf,
		certs:       certs,
		gateway:     gateway,
		store:       st,
		clock:       clock,
		json:        jsonAdapter,
		explorerURL: explorerURLTemplate,
	}
}

// UploadAsset stores an uploaded file and returns its asset id
func (s *service) UploadAsset(ctx context.Context, clientAddress, filename string, r io.Reader) (string, error) {
	return s.assets.Save(clientAddress, filename, r)
}

// MintCertificate runs the full mint workflow
func (s *service) MintCertificate(ctx context.Context, req MintRequest) (*MintResult, error) {
	path, err := s.assets.Path(req.FileUID)
	if err != nil {
		return nil, err
	}

	prediction, err := s.classifier.Classify(ctx, path)
	if err != nil {
		return nil, err
	}

	fileHash, err := s.assets.Digest(req.FileUID)
	if err != nil {
		return nil, err
	}

	// The certificate id exists before the chain transaction, so the public
	// certificate URL never points at a half-completed mint.
	cert, err := s.certs.Create(ctx, certificate.CreateParams{
		RealPct:         domain.ToPercent(prediction.Real),
		FakePct:         domain.ToPercent(prediction.Fake),
		FileHash:        fileHash,
		ClientAddress:   req.UserAddress,
		ContractAddress: s.gateway.Address(),
		IssuedAt:        s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	certificateURL := s.certs.URL(cert.ID)

	metadata := domain.TokenMetadata{
		Name:        tokenName,
		Description: tokenDescription,
		Image:       certificateURL,
		FileHash:    fileHash,
		Attributes:  []domain.Classification{prediction},
	}
	metadataJSON, err := s.json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token metadata: %w", err)
	}

	receipt, err := s.gateway.Mint(ctx, string(metadataJSON), req.UserAddress)
	if err != nil {
		return nil, err
	}

	// The mint is already confirmed on chain; a failed audit write is logged
	// rather than surfaced as a mint failure.
	if err := s.store.CreateMintedToken(ctx, &schema.MintedToken{
		TokenID:       receipt.TokenID,
		OwnerAddress:  domain.Address(req.UserAddress).Hex(),
		CertificateID: cert.ID,
		TxHash:        receipt.TxHash,
		CreatedAt:     s.clock.Now(),
	}); err != nil {
		logger.WarnCtx(ctx, "failed to record minted token",
			zap.Error(err),
			zap.Uint64("tokenID", receipt.TokenID))
	}

	tokenURI, err := s.gateway.TokenURI(ctx, receipt.TokenID)
	if err != nil {
		return nil, err
	}

	return &MintResult{
		PolygonURL:     fmt.Sprintf(s.explorerURL, s.gateway.Address(), receipt.TokenID),
		CertificateURL: certificateURL,
		TokenID:        receipt.TokenID,
		TokenURI:       tokenURI,
	}, nil
}

// ListUserTokens enumerates the tokens currently owned by an address.
// This is a linear scan over the contract's token ids; the chain is the
// authoritative source since transfers happen outside this service.
func (s *service) ListUserTokens(ctx context.Context, userAddress string) ([]domain.UserToken, error) {
	totalSupply, err := s.gateway.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}

	wanted := domain.Address(userAddress).Hex()
	tokens := make([]domain.UserToken, 0)
	for tokenID := uint64(0); tokenID < totalSupply; tokenID++ {
		owner, err := s.gateway.OwnerOf(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		if owner != wanted {
			continue
		}

		uri, err := s.gateway.TokenURI(ctx, tokenID)
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, domain.UserToken{
			TokenID:    tokenID,
			URI:        decodeTokenURI(uri),
			PolygonURL: fmt.Sprintf(s.explorerURL, s.gateway.Address(), tokenID),
		})
	}

	return tokens, nil
}

// GetTokenURI fetches and decodes a token's metadata document
func (s *service) GetTokenURI(ctx context.Context, tokenID uint64) (json.RawMessage, error) {
	uri, err := s.gateway.TokenURI(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return decodeTokenURI(uri), nil
}

// GetCertificate retrieves an issued certificate by id
func (s *service) GetCertificate(ctx context.Context, id string) (*domain.Certificate, error) {
	return s.certs.Get(ctx, id)
}

// decodeTokenURI returns the URI as a JSON document. Token URIs written by
// this service are JSON metadata; anything else is wrapped as a JSON string.
func decodeTokenURI(uri string) json.RawMessage {
	if json.Valid([]byte(uri)) {
		return json.RawMessage(uri)
	}
	quoted, _ := json.Marshal(uri)
	return quoted
}
