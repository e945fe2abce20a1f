package mlm

import (
	"github.com/shopspring/decimal"

	"mlm-project/models"
)

// Tables holds every constant of the compensation plan. An Engine keeps its
// own copy; nothing mutates it after construction.
type Tables struct {
	RoiTiers     []models.RoiTier
	FallbackRate decimal.Decimal

	// direct referrals needed for UpgradedMaxRoi
	UpgradeReferrals int
	DefaultMaxRoi    decimal.Decimal
	UpgradedMaxRoi   decimal.Decimal

	// whole percent, indexed by depth below the reference node
	LevelPercentages []decimal.Decimal
	PathBaseRate     decimal.Decimal
	PathDecay        decimal.Decimal

	Stages []models.Stage

	// share of a stage's business each side of the leg split must carry
	StageLegShare decimal.Decimal

	CapacityPerNode   decimal.Decimal
	CapacityMaxLevels int
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultTables returns the production plan.
func DefaultTables() Tables {
	pct := []int64{
		0, 40, 15, 10, 10, 10, 7, 7, 7, 7, 7, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
		3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	}
	levels := make([]decimal.Decimal, len(pct))
	for i, v := range pct {
		levels[i] = decimal.NewFromInt(v)
	}

	stage := func(business, daily int64, months int) models.Stage {
		return models.Stage{
			TotalBusiness: decimal.NewFromInt(business),
			DailyPayout:   decimal.NewFromInt(daily),
			Months:        months,
		}
	}

	return Tables{
		RoiTiers: []models.RoiTier{
			{Min: d("20"), Max: d("5000"), Rate: d("0.004")},
			{Min: d("5001"), Max: d("7000"), Rate: d("0.0075")},
			{Min: d("7001"), Max: d("10000"), Rate: d("0.01")},
		},
		FallbackRate: d("0.004"),

		DefaultMaxRoi:    d("2"),
		UpgradedMaxRoi:   d("4"),
		UpgradeReferrals: 3,

		LevelPercentages: levels,
		PathBaseRate:     d("0.40"),
		PathDecay:        d("0.15"),

		Stages: []models.Stage{
			stage(2500, 3, 2),
			stage(6000, 5, 3),
			stage(12000, 8, 6),
			stage(30000, 14, 9),
			stage(60000, 25, 12),
			stage(85000, 36, 15),
			stage(120000, 47, 18),
			stage(240000, 88, 24),
			stage(500000, 211, 30),
		},
		StageLegShare:     d("0.5"),
		CapacityPerNode:   d("0.5"),
		CapacityMaxLevels: 17,
	}
}

// RateFor returns the daily ROI rate for a stake of amount.
func (t Tables) RateFor(amount decimal.Decimal) decimal.Decimal {
	for _, tier := range t.RoiTiers {
		if tier.Contains(amount) {
			return tier.Rate
		}
	}
	return t.FallbackRate
}

// LevelShare is the fraction of daily profit paid from depth, zero past the table.
func (t Tables) LevelShare(depth int) decimal.Decimal {
	if depth < 0 || depth >= len(t.LevelPercentages) {
		return decimal.Zero
	}
	return t.LevelPercentages[depth].Shift(-2)
}

func (t Tables) clone() Tables {
	c := t
	c.RoiTiers = append([]models.RoiTier(nil), t.RoiTiers...)
	c.LevelPercentages = append([]decimal.Decimal(nil), t.LevelPercentages...)
	c.Stages = append([]models.Stage(nil), t.Stages...)
	return c
}
