package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/minter"
)

const (
	testUserAddress = "0x8626f6940E2eb28930eFb4CeF49B2d1F2C9C1199"
	testFileUID     = testUserAddress + "_f81d4fae-7dec-11d0-a765-00a0c91e6bf6.jpg"
)

// fakeService is a scriptable minter.Service for handler tests
type fakeService struct {
	uploadID   string
	uploadErr  error
	mintResult *minter.MintResult
	mintErr    error
	tokens     []domain.UserToken
	listErr    error
	uri        json.RawMessage
	uriErr     error
	cert       *domain.Certificate
	certErr    error

	gotMintRequest minter.MintRequest
}

func (f *fakeService) UploadAsset(_ context.Context, _, _ string, _ io.Reader) (string, error) {
	return f.uploadID, f.uploadErr
}

func (f *fakeService) MintCertificate(_ context.Context, req minter.MintRequest) (*minter.MintResult, error) {
	f.gotMintRequest = req
	return f.mintResult, f.mintErr
}

func (f *fakeService) ListUserTokens(_ context.Context, _ string) ([]domain.UserToken, error) {
	return f.tokens, f.listErr
}

func (f *fakeService) GetTokenURI(_ context.Context, _ uint64) (json.RawMessage, error) {
	return f.uri, f.uriErr
}

func (f *fakeService) GetCertificate(_ context.Context, _ string) (*domain.Certificate, error) {
	return f.cert, f.certErr
}

func setupRouter(service minter.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, NewHandler(service))
	return router
}

func performRequest(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return string(resp.Error.Code)
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := performRequest(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMintCertificate(t *testing.T) {
	service := &fakeService{
		mintResult: &minter.MintResult{
			PolygonURL:     "https://cardona-zkevm.polygonscan.com/nft/0x5FbDB2315678afecb367f032d93F642f64180aa3/7",
			CertificateURL: "https://certs.example.com/certificate/abc",
			TokenID:        7,
			TokenURI:       `{"name":"Deep Fake Certification"}`,
		},
	}
	router := setupRouter(service)

	body := `{"user_address":"` + testUserAddress + `","file_uid":"` + testFileUID + `"}`
	w := performRequest(router, http.MethodPost, "/mint_certificate", strings.NewReader(body), "application/json")

	require.Equal(t, http.StatusOK, w.Code)

	var result minter.MintResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, uint64(7), result.TokenID)
	assert.Equal(t, "https://certs.example.com/certificate/abc", result.CertificateURL)

	assert.Equal(t, testUserAddress, service.gotMintRequest.UserAddress)
	assert.Equal(t, testFileUID, service.gotMintRequest.FileUID)
}

func TestMintCertificateValidation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing file uid",
			body: `{"user_address":"` + testUserAddress + `"}`,
		},
		{
			name: "missing user address",
			body: `{"file_uid":"` + testFileUID + `"}`,
		},
		{
			name: "malformed address",
			body: `{"user_address":"not-an-address","file_uid":"` + testFileUID + `"}`,
		},
		{
			name: "not json",
			body: `user_address=` + testUserAddress,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(&fakeService{})
			w := performRequest(router, http.MethodPost, "/mint_certificate", strings.NewReader(tc.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", errorCodeOf(t, w))
		})
	}
}

func TestMintCertificateErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "asset not found",
			err:        domain.ErrAssetNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "classification failed",
			err:        domain.ErrClassificationFailed,
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_error",
		},
		{
			name:       "chain submission failed",
			err:        domain.ErrChainSubmission,
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_error",
		},
		{
			name:       "contract not deployed",
			err:        domain.ErrContractNotDeployed,
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_error",
		},
		{
			name:       "confirmation timeout",
			err:        domain.ErrConfirmationTimeout,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "confirmation_timeout",
		},
		{
			name:       "unexpected error",
			err:        io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	body := `{"user_address":"` + testUserAddress + `","file_uid":"` + testFileUID + `"}`
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(&fakeService{mintErr: tc.err})
			w := performRequest(router, http.MethodPost, "/mint_certificate", strings.NewReader(body), "application/json")
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantCode, errorCodeOf(t, w))
		})
	}
}

func TestGetUserNFTs(t *testing.T) {
	service := &fakeService{
		tokens: []domain.UserToken{
			{
				TokenID:    0,
				URI:        json.RawMessage(`{"name":"Deep Fake Certification"}`),
				PolygonURL: "https://cardona-zkevm.polygonscan.com/nft/0x5FbDB2315678afecb367f032d93F642f64180aa3/0",
			},
		},
	}
	router := setupRouter(service)

	w := performRequest(router, http.MethodGet, "/cert/"+testUserAddress, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp userNFTsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testUserAddress, resp.UserAddress)
	require.Len(t, resp.NFTs, 1)
	assert.Equal(t, uint64(0), resp.NFTs[0].TokenID)
}

func TestGetUserNFTsEmpty(t *testing.T) {
	router := setupRouter(&fakeService{tokens: []domain.UserToken{}})

	// An owner with no tokens is a 200 with an empty list, not an error
	w := performRequest(router, http.MethodGet, "/cert/"+testUserAddress, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nfts":[]`)
}

func TestGetUserNFTsInvalidAddress(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := performRequest(router, http.MethodGet, "/cert/not-an-address", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTokenURI(t *testing.T) {
	router := setupRouter(&fakeService{uri: json.RawMessage(`{"file_hash":"abc"}`)})

	w := performRequest(router, http.MethodGet, "/get_token_uri/5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenURIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.TokenID)
	assert.JSONEq(t, `{"file_hash":"abc"}`, string(resp.URI))
}

func TestGetTokenURIInvalidID(t *testing.T) {
	router := setupRouter(&fakeService{})

	for _, tokenID := range []string{"abc", "-1", "1.5"} {
		w := performRequest(router, http.MethodGet, "/get_token_uri/"+tokenID, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestGetTokenURINotFound(t *testing.T) {
	router := setupRouter(&fakeService{uriErr: domain.ErrTokenNotFound})

	w := performRequest(router, http.MethodGet, "/get_token_uri/99", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCodeOf(t, w))
}

func TestUploadFile(t *testing.T) {
	service := &fakeService{uploadID: testFileUID}
	router := setupRouter(service)

	body, contentType := multipartUpload(t, "photo.png", []byte("image bytes"))
	w := performRequest(router, http.MethodPost, "/file/"+testUserAddress+"/upload", body, contentType)

	require.Equal(t, http.StatusOK, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testFileUID, resp.ID)
}

func TestUploadFileMissingFile(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := performRequest(router, http.MethodPost, "/file/"+testUserAddress+"/upload", strings.NewReader(""), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadFileUnsupportedMediaType(t *testing.T) {
	router := setupRouter(&fakeService{uploadErr: domain.ErrUnsupportedMediaType})

	body, contentType := multipartUpload(t, "notes.txt", []byte("plain text"))
	w := performRequest(router, http.MethodPost, "/file/"+testUserAddress+"/upload", body, contentType)

	// Bad media is the client's problem, not an auth failure
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "unsupported_media_type", errorCodeOf(t, w))
}

func TestGetCertificate(t *testing.T) {
	cert := &domain.Certificate{
		ID:              "01K1W2X3Y4Z5A6B7C8D9E0F1G2",
		RealPct:         97.87,
		FakePct:         2.13,
		FileHash:        "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		ClientAddress:   testUserAddress,
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		IssuedAt:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	router := setupRouter(&fakeService{cert: cert})

	w := performRequest(router, http.MethodGet, "/certificate/"+cert.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Certificate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, cert.ID, got.ID)
	assert.Equal(t, 97.87, got.RealPct)
}

func TestGetCertificateNotFound(t *testing.T) {
	router := setupRouter(&fakeService{certErr: domain.ErrCertificateNotFound})

	w := performRequest(router, http.MethodGet, "/certificate/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCodeOf(t, w))
}
