package models

import "github.com/shopspring/decimal"

// Participant is one registered wallet in the sponsor tree together with its
// stake and profit state.
type Participant struct {
	ID                  int64           `json:"id"`                    // sequential, 1-based registration order
	WalletAddress       string          `json:"wallet_address"`        // unique natural key
	SponsorAddress      *string         `json:"sponsor_address"`       // nil only for the root
	RootAddress         string          `json:"root_address"`          // wallet of the first registrant
	DepthHint           int             `json:"depth_hint"`            // sponsor depth + 1 at placement
	DirectReferralCount int             `json:"direct_referral_count"` // participants sponsored directly
	StakedAmount        decimal.Decimal `json:"staked_amount"`         // principal, zero if never staked
	AccruedProfit       decimal.Decimal `json:"accrued_profit"`        // cumulative credited profit
	DailyRoiRate        decimal.Decimal `json:"daily_roi_rate"`        // fixed at stake time
	DailyProfitAmount   decimal.Decimal `json:"daily_profit_amount"`   // last per-cycle credit
	MaxRoiMultiple      decimal.Decimal `json:"max_roi_multiple"`      // accrual cap as multiple of stake
	LastAccrualCycle    string          `json:"last_accrual_cycle"`    // cycle that last credited profit
	Version             uint64          `json:"version"`               // optimistic concurrency token
}

// IsRoot reports whether p has no sponsor.
func (p *Participant) IsRoot() bool {
	return p.SponsorAddress == nil
}

// HasStaked reports whether p holds a stake.
func (p *Participant) HasStaked() bool {
	return p.StakedAmount.IsPositive()
}

// RoiCap is the most profit p may ever accrue: MaxRoiMultiple x StakedAmount.
func (p *Participant) RoiCap() decimal.Decimal {
	return p.MaxRoiMultiple.Mul(p.StakedAmount)
}

// Clone returns a copy that shares no pointers with p.
func (p *Participant) Clone() *Participant {
	c := *p
	if p.SponsorAddress != nil {
		s := *p.SponsorAddress
		c.SponsorAddress = &s
	}
	return &c
}
