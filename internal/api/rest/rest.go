package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Mint workflow
	router.POST("/mint_certificate", handler.MintCertificate)

	// Token read endpoints
	router.GET("/cert/:user_address", handler.GetUserNFTs)
	router.GET("/get_token_uri/:token_id", handler.GetTokenURI)

	// Certificate read endpoint (the certificate URL embedded in token metadata)
	router.GET("/certificate/:certificate_id", handler.GetCertificate)

	// Upload endpoint
	router.POST("/file/:client_address/upload", handler.UploadFile)
}
