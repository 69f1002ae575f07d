package domain

import "github.com/shopspring/decimal"

// FeeBreakdown is the fee quote for a draft. It is derived, never persisted
// on the draft itself.
type FeeBreakdown struct {
	BaseFee     decimal.Decimal `json:"baseFee"`
	MetadataFee decimal.Decimal `json:"metadataFee"`
	TotalFee    decimal.Decimal `json:"totalFee"`
	Unit        string          `json:"unit"`
}
