package schema

import (
	"time"
)

// Certificate represents the certificates table - one row per issued
// deepfake-detection certificate. The id is a ULID minted before the chain
// transaction is submitted, so it is stable even if the mint later fails.
type Certificate struct {
	// ID is the public certificate identifier embedded in the certificate URL
	ID string `gorm:"column:id;primaryKey;type:text"`
	// RealPct is the classifier's "real" score scaled to 0-100
	RealPct float64 `gorm:"column:real_pct;not null"`
	// FakePct is the classifier's "fake" score scaled to 0-100
	FakePct float64 `gorm:"column:fake_pct;not null"`
	// FileHash is the hex SHA-256 digest of the certified asset
	FileHash string `gorm:"column:file_hash;not null;type:text;index"`
	// ClientAddress is the requester's wallet address
	ClientAddress string `gorm:"column:client_address;not null;type:text;index"`
	// ContractAddress is the collectible contract the certificate was minted against
	ContractAddress string `gorm:"column:contract_address;not null;type:text"`
	// IssuedAt is the certificate issuance date
	IssuedAt time.Time `gorm:"column:issued_at;not null"`
	// CreatedAt is the timestamp when this record was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the Certificate model
func (Certificate) TableName() string {
	return "certificates"
}
