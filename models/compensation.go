package models

import "github.com/shopspring/decimal"

// RoiTier maps an inclusive stake range to a daily ROI rate.
type RoiTier struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Rate decimal.Decimal `json:"rate"`
}

// Contains reports whether amount falls within [Min, Max].
func (t RoiTier) Contains(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(t.Min) && amount.LessThanOrEqual(t.Max)
}

// Stage is a team development income tier.
type Stage struct {
	TotalBusiness decimal.Decimal `json:"total_business"` // required downline volume
	DailyPayout   decimal.Decimal `json:"daily_payout"`
	Months        int             `json:"months"` // qualification period
}
