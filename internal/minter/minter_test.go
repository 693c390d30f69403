package minter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/certificate"
	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/store/schema"
)

const (
	testUserAddress     = "0x8626f6940E2eb28930eFb4CeF49B2d1F2C9C1199"
	testContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testFileUID         = testUserAddress + "_f81d4fae-7dec-11d0-a765-00a0c91e6bf6.jpg"
	testFileHash        = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	explorerTemplate    = "https://cardona-zkevm.polygonscan.com/nft/%s/%d"
)

var issuedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeAssets struct {
	savedID string
	saveErr error
	pathErr error
}

func (f *fakeAssets) Save(_, _ string, _ io.Reader) (string, error) {
	return f.savedID, f.saveErr
}

func (f *fakeAssets) Open(_ string) (adapter.ReadFile, error) {
	return nil, errors.New("not used")
}

func (f *fakeAssets) Path(id string) (string, error) {
	if f.pathErr != nil {
		return "", f.pathErr
	}
	return "/var/assets/" + id, nil
}

func (f *fakeAssets) Digest(_ string) (string, error) {
	return testFileHash, nil
}

type fakeClassifier struct {
	result domain.Classification
	err    error
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (domain.Classification, error) {
	return f.result, f.err
}

type fakeGateway struct {
	address     string
	mintedURI   string
	mintedOwner string
	mintErr     error
	tokenID     uint64

	owners map[uint64]string
	uris   map[uint64]string
}

func (f *fakeGateway) Address() string { return f.address }

func (f *fakeGateway) Deployed(_ context.Context) (bool, error) { return f.address != "", nil }

func (f *fakeGateway) Mint(_ context.Context, metadataJSON string, ownerAddress string) (*domain.MintReceipt, error) {
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	f.mintedURI = metadataJSON
	f.mintedOwner = ownerAddress
	if f.uris == nil {
		f.uris = make(map[uint64]string)
	}
	f.uris[f.tokenID] = metadataJSON
	return &domain.MintReceipt{TokenID: f.tokenID, TxHash: "0xabc123"}, nil
}

func (f *fakeGateway) TokenURI(_ context.Context, tokenID uint64) (string, error) {
	uri, ok := f.uris[tokenID]
	if !ok {
		return "", domain.ErrTokenNotFound
	}
	return uri, nil
}

func (f *fakeGateway) OwnerOf(_ context.Context, tokenID uint64) (string, error) {
	owner, ok := f.owners[tokenID]
	if !ok {
		return "", domain.ErrTokenNotFound
	}
	return owner, nil
}

func (f *fakeGateway) TotalSupply(_ context.Context) (uint64, error) {
	return uint64(len(f.owners)), nil
}

func (f *fakeGateway) TokenCounter(_ context.Context) (uint64, error) {
	return uint64(len(f.owners)), nil
}

func (f *fakeGateway) Deploy(_ context.Context, _ []byte) (string, error) {
	return f.address, nil
}

type fakeStore struct {
	certificates map[string]*schema.Certificate
	mintedTokens []schema.MintedToken
	mintedErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{certificates: make(map[string]*schema.Certificate)}
}

func (f *fakeStore) CreateCertificate(_ context.Context, cert *schema.Certificate) error {
	f.certificates[cert.ID] = cert
	return nil
}

func (f *fakeStore) GetCertificateByID(_ context.Context, id string) (*schema.Certificate, error) {
	return f.certificates[id], nil
}

func (f *fakeStore) CreateMintedToken(_ context.Context, token *schema.MintedToken) error {
	if f.mintedErr != nil {
		return f.mintedErr
	}
	f.mintedTokens = append(f.mintedTokens, *token)
	return nil
}

func (f *fakeStore) ListMintedTokensByOwner(_ context.Context, owner string) ([]schema.MintedToken, error) {
	var tokens []schema.MintedToken
	for _, token := range f.mintedTokens {
		if token.OwnerAddress == owner {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time                         { return c.now }
func (c *fixedClock) Since(t time.Time) time.Duration        { return c.now.Sub(t) }
func (c *fixedClock) Sleep(_ time.Duration)                  {}
func (c *fixedClock) After(_ time.Duration) <-chan time.Time { return nil }

type testHarness struct {
	service    Service
	assets     *fakeAssets
	classifier *fakeClassifier
	gateway    *fakeGateway
	store      *fakeStore
}

func newTestHarness() *testHarness {
	st := newFakeStore()
	h := &testHarness{
		assets:     &fakeAssets{savedID: testFileUID},
		classifier: &fakeClassifier{result: domain.Classification{Real: 0.97868, Fake: 0.02132}},
		gateway:    &fakeGateway{address: testContractAddress, tokenID: 7},
		store:      st,
	}
	h.service = NewService(
		h.assets,
		h.classifier,
		certificate.NewBuilder(st, "https://certs.example.com"),
		h.gateway,
		st,
		&fixedClock{now: issuedAt},
		adapter.NewJSON(),
		explorerTemplate,
	)
	return h
}

func TestMintCertificate(t *testing.T) {
	h := newTestHarness()

	result, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), result.TokenID)
	assert.Equal(t, "https://cardona-zkevm.polygonscan.com/nft/"+testContractAddress+"/7", result.PolygonURL)

	// The token metadata's image points at the certificate page
	var metadata domain.TokenMetadata
	require.NoError(t, json.Unmarshal([]byte(h.gateway.mintedURI), &metadata))
	assert.Equal(t, "Deep Fake Certification", metadata.Name)
	assert.Equal(t, result.CertificateURL, metadata.Image)
	assert.Equal(t, testFileHash, metadata.FileHash)
	require.Len(t, metadata.Attributes, 1)
	assert.Equal(t, h.classifier.result, metadata.Attributes[0])

	// The token URI in the response is what was minted
	assert.Equal(t, h.gateway.mintedURI, result.TokenURI)
	assert.Equal(t, testUserAddress, h.gateway.mintedOwner)
}

func TestMintCertificateStoresPercentages(t *testing.T) {
	h := newTestHarness()

	result, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	require.NoError(t, err)

	cert, err := h.service.GetCertificate(context.Background(), certificateIDFromURL(result.CertificateURL))
	require.NoError(t, err)

	// Scores are converted once, fraction to percentage with two decimals
	assert.Equal(t, 97.87, cert.RealPct)
	assert.Equal(t, 2.13, cert.FakePct)
	assert.Equal(t, testFileHash, cert.FileHash)
	assert.Equal(t, testContractAddress, cert.ContractAddress)
	assert.Equal(t, issuedAt, cert.IssuedAt)
}

func TestMintCertificateRecordsAudit(t *testing.T) {
	h := newTestHarness()

	_, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	require.NoError(t, err)

	require.Len(t, h.store.mintedTokens, 1)
	record := h.store.mintedTokens[0]
	assert.Equal(t, uint64(7), record.TokenID)
	assert.Equal(t, domain.Address(testUserAddress).Hex(), record.OwnerAddress)
	assert.Equal(t, "0xabc123", record.TxHash)
	assert.NotEmpty(t, record.CertificateID)
}

func TestMintCertificateAuditFailureDoesNotFailMint(t *testing.T) {
	h := newTestHarness()
	h.store.mintedErr = errors.New("connection refused")

	result, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), result.TokenID)
}

func TestMintCertificateUnknownAsset(t *testing.T) {
	h := newTestHarness()
	h.assets.pathErr = domain.ErrAssetNotFound

	_, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     "missing.jpg",
	})
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestMintCertificateClassifierFailure(t *testing.T) {
	h := newTestHarness()
	h.classifier.err = domain.ErrClassificationFailed

	_, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	assert.ErrorIs(t, err, domain.ErrClassificationFailed)

	// Nothing must be minted when classification fails
	assert.Empty(t, h.gateway.mintedURI)
}

func TestMintCertificateChainFailure(t *testing.T) {
	h := newTestHarness()
	h.gateway.mintErr = domain.ErrChainSubmission

	_, err := h.service.MintCertificate(context.Background(), MintRequest{
		UserAddress: testUserAddress,
		FileUID:     testFileUID,
	})
	assert.ErrorIs(t, err, domain.ErrChainSubmission)
	assert.Empty(t, h.store.mintedTokens)
}

func TestListUserTokens(t *testing.T) {
	h := newTestHarness()
	wanted := domain.Address(testUserAddress).Hex()
	h.gateway.owners = map[uint64]string{
		0: wanted,
		1: "0x000000000000000000000000000000000000dEaD",
		2: wanted,
	}
	h.gateway.uris = map[uint64]string{
		0: `{"name":"Deep Fake Certification"}`,
		1: `{"name":"Deep Fake Certification"}`,
		2: "https://example.com/not-json",
	}

	tokens, err := h.service.ListUserTokens(context.Background(), testUserAddress)
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.Equal(t, uint64(0), tokens[0].TokenID)
	assert.JSONEq(t, `{"name":"Deep Fake Certification"}`, string(tokens[0].URI))

	// Non-JSON URIs are carried through as JSON strings
	assert.Equal(t, uint64(2), tokens[1].TokenID)
	assert.Equal(t, `"https://example.com/not-json"`, string(tokens[1].URI))

	assert.Equal(t, "https://cardona-zkevm.polygonscan.com/nft/"+testContractAddress+"/0", tokens[0].PolygonURL)
}

func TestListUserTokensEmpty(t *testing.T) {
	h := newTestHarness()
	h.gateway.owners = map[uint64]string{}

	tokens, err := h.service.ListUserTokens(context.Background(), testUserAddress)
	require.NoError(t, err)
	assert.NotNil(t, tokens)
	assert.Empty(t, tokens)
}

func TestGetTokenURI(t *testing.T) {
	h := newTestHarness()
	h.gateway.uris = map[uint64]string{5: `{"file_hash":"abc"}`}

	uri, err := h.service.GetTokenURI(context.Background(), 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file_hash":"abc"}`, string(uri))

	_, err = h.service.GetTokenURI(context.Background(), 6)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestGetCertificateMissing(t *testing.T) {
	h := newTestHarness()

	_, err := h.service.GetCertificate(context.Background(), "01K1W2X3Y4Z5A6B7C8D9E0F1G2")
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
}

// certificateIDFromURL extracts the trailing id from a certificate URL
func certificateIDFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}
