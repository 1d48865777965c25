package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingRate represents funding rate information
type FundingRate struct {
	Symbol      string          `json:"symbol"`
	Rate        decimal.Decimal `json:"rate"`
	Time        time.Time       `json:"time"`
	NextFunding time.Time       `json:"next_funding"`
}
