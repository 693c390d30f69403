package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/minter"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// MintCertificate runs the certificate mint workflow for an uploaded asset
	// POST /mint_certificate
	MintCertificate(c *gin.Context)

	// GetUserNFTs lists the tokens currently owned by an address
	// GET /cert/:user_address
	GetUserNFTs(c *gin.Context)

	// GetTokenURI returns a single token's decoded metadata
	// GET /get_token_uri/:token_id
	GetTokenURI(c *gin.Context)

	// UploadFile stores an uploaded media file and returns its asset id
	// POST /file/:client_address/upload
	UploadFile(c *gin.Context)

	// GetCertificate returns an issued certificate record
	// GET /certificate/:certificate_id
	GetCertificate(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	service minter.Service
}

// NewHandler creates a new REST API handler using the mint service
func NewHandler(service minter.Service) Handler {
	return &handler{service: service}
}

// MintCertificate runs the certificate mint workflow for an uploaded asset
func (h *handler) MintCertificate(c *gin.Context) {
	var req mintCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	// The user address becomes the on-chain owner, so it must be a real
	// hex address before anything is submitted.
	if !domain.Address(req.UserAddress).Valid() {
		respondBadRequest(c, "Invalid user address")
		return
	}

	result, err := h.service.MintCertificate(c.Request.Context(), minter.MintRequest{
		UserAddress:   req.UserAddress,
		FileUID:       req.FileUID,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUserNFTs lists the tokens currently owned by an address
func (h *handler) GetUserNFTs(c *gin.Context) {
	userAddress := c.Param("user_address")
	if !domain.Address(userAddress).Valid() {
		respondBadRequest(c, "Invalid user address")
		return
	}

	tokens, err := h.service.ListUserTokens(c.Request.Context(), userAddress)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, userNFTsResponse{
		UserAddress: userAddress,
		NFTs:        tokens,
	})
}

// GetTokenURI returns a single token's decoded metadata
func (h *handler) GetTokenURI(c *gin.Context) {
	tokenID, err := strconv.ParseUint(c.Param("token_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid token id", err.Error())
		return
	}

	uri, err := h.service.GetTokenURI(c.Request.Context(), tokenID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenURIResponse{
		TokenID: tokenID,
		URI:     uri,
	})
}

// UploadFile stores an uploaded media file and returns its asset id.
// The client address path parameter is carried into the stored filename
// without format validation, matching the upload contract.
func (h *handler) UploadFile(c *gin.Context) {
	clientAddress := c.Param("client_address")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "Missing file", err.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "Unreadable file", err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	id, err := h.service.UploadAsset(c.Request.Context(), clientAddress, fileHeader.Filename, f)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{ID: id})
}

// GetCertificate returns an issued certificate record
func (h *handler) GetCertificate(c *gin.Context) {
	id := c.Param("certificate_id")
	if id == "" {
		respondBadRequest(c, "Certificate id is required")
		return
	}

	cert, err := h.service.GetCertificate(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
