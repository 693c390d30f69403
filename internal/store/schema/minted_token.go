package schema

import (
	"time"
)

// MintedToken represents the minted_tokens table - a local audit record of
// every token this service minted. The chain remains the authoritative source
// for ownership; this table exists so a mint can be traced back to its
// certificate and transaction without scanning the contract.
type MintedToken struct {
	// TokenID is the on-chain token id recovered from the mint receipt
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// OwnerAddress is the address the token was minted to
	OwnerAddress string `gorm:"column:owner_address;not null;type:text;index"`
	// CertificateID references the certificate embedded in the token metadata
	CertificateID string `gorm:"column:certificate_id;not null;type:text;index"`
	// TxHash is the mint transaction hash
	TxHash string `gorm:"column:tx_hash;not null;type:text"`
	// CreatedAt is the timestamp when the mint was confirmed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the MintedToken model
func (MintedToken) TableName() string {
	return "minted_tokens"
}
