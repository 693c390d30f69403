package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 0x-prefixed hex Ethereum address
type Address string

// Valid reports whether the address is a well-formed hex address
func (a Address) Valid() bool {
	return common.IsHexAddress(string(a))
}

// Hex returns the checksummed hex form of the address
func (a Address) Hex() string {
	return common.HexToAddress(string(a)).Hex()
}

// MediaKind is the coarse category an uploaded asset is filed under
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Classification holds the classifier's probability scores, each in [0,1]
type Classification struct {
	Real float64 `json:"real"`
	Fake float64 `json:"fake"`
}

// Valid reports whether both scores are probabilities
func (c Classification) Valid() bool {
	return c.Real >= 0 && c.Real <= 1 && c.Fake >= 0 && c.Fake <= 1
}

// ToPercent converts a fractional score to a 0-100 percentage with a single
// rounding to two decimal places.
func ToPercent(score float64) float64 {
	return math.Round(score*10000) / 100
}

// Certificate is the off-chain record pairing classification scores and a
// file digest with a unique public id. The id is generated before any chain
// mutation so the certificate URL never references a half-completed mint.
type Certificate struct {
	ID              string    `json:"id"`
	RealPct         float64   `json:"real_pct"`
	FakePct         float64   `json:"fake_pct"`
	FileHash        string    `json:"file_hash"`
	ClientAddress   string    `json:"client_address"`
	ContractAddress string    `json:"contract_address"`
	IssuedAt        time.Time `json:"issued_at"`
}

// TokenMetadata is the JSON document stored as the token URI
type TokenMetadata struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	FileHash    string           `json:"file_hash"`
	Attributes  []Classification `json:"attributes"`
}

// MintReceipt identifies the token created by a confirmed mint transaction.
// TokenID is recovered from the transaction's own Transfer event, never from
// global contract state.
type MintReceipt struct {
	TokenID uint64
	TxHash  string
}

// UserToken is one entry in a user's token listing
type UserToken struct {
	TokenID    uint64          `json:"token_id"`
	URI        json.RawMessage `json:"uri"`
	PolygonURL string          `json:"polygon_url"`
}
