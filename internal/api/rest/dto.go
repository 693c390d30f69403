package rest

import (
	"encoding/json"

	"github.com/unmask-labs/certmint/internal/domain"
)

// mintCertificateRequest is the body of POST /mint_certificate
type mintCertificateRequest struct {
	UserAddress   string `json:"user_address" binding:"required"`
	FileUID       string `json:"file_uid" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

// uploadResponse is the body returned by POST /file/:client_address/upload
type uploadResponse struct {
	ID string `json:"id"`
}

// userNFTsResponse is the body returned by GET /cert/:user_address
type userNFTsResponse struct {
	UserAddress string             `json:"user_address"`
	NFTs        []domain.UserToken `json:"nfts"`
}

// tokenURIResponse is the body returned by GET /get_token_uri/:token_id
type tokenURIResponse struct {
	TokenID uint64          `json:"token_id"`
	URI     json.RawMessage `json:"uri"`
}
