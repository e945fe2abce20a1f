package mlm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mlm-project/forest"
	"mlm-project/logger"
	"mlm-project/models"
)

// Leg is the staked business of one direct referral's whole subtree.
type Leg struct {
	Address  string          `json:"address"`
	Business decimal.Decimal `json:"business"`
}

type TeamIncome struct {
	QualifyingStages      []models.Stage  `json:"qualifying_stages"`
	TotalDownlineBusiness decimal.Decimal `json:"total_downline_business"`
	HighestLeg            decimal.Decimal `json:"highest_leg"`
	RestOfDownline        decimal.Decimal `json:"rest_of_downline"`
	Legs                  []Leg           `json:"legs"`
}

// TeamDevIncome splits the downline of address into legs and returns every
// stage for which both the strongest leg and the remaining legs carry at
// least StageLegShare of the stage's business.
func (e *Engine) TeamDevIncome(ctx context.Context, address string) (TeamIncome, error) {
	defer observe("team_dev_income", time.Now())

	result := TeamIncome{
		QualifyingStages:      []models.Stage{},
		TotalDownlineBusiness: decimal.Zero,
		HighestLeg:            decimal.Zero,
		RestOfDownline:        decimal.Zero,
		Legs:                  []Leg{},
	}
	if _, err := e.Participant(ctx, address); err != nil {
		return result, err
	}
	f, err := e.snapshotForest(ctx)
	if err != nil {
		return result, err
	}
	node := f.Find(address)
	if node == nil {
		return result, nil
	}

	for _, child := range node.Children {
		business := subtreeStake(child)
		result.Legs = append(result.Legs, Leg{Address: child.Participant.WalletAddress, Business: business})
		result.TotalDownlineBusiness = result.TotalDownlineBusiness.Add(business)
		if business.GreaterThan(result.HighestLeg) {
			result.HighestLeg = business
		}
	}
	result.RestOfDownline = result.TotalDownlineBusiness.Sub(result.HighestLeg)
	result.QualifyingStages = e.qualifyingStages(result.HighestLeg, result.RestOfDownline)

	logger.Logger.Debug("Team development income computed",
		zap.String("wallet_address", address),
		zap.String("highest_leg", result.HighestLeg.String()),
		zap.String("rest_of_downline", result.RestOfDownline.String()),
		zap.Int("qualifying_stages", len(result.QualifyingStages)))
	return result, nil
}

func (e *Engine) qualifyingStages(highestLeg, rest decimal.Decimal) []models.Stage {
	stages := []models.Stage{}
	for _, stage := range e.tables.Stages {
		threshold := stage.TotalBusiness.Mul(e.tables.StageLegShare)
		if highestLeg.GreaterThanOrEqual(threshold) && rest.GreaterThanOrEqual(threshold) {
			stages = append(stages, stage)
		}
	}
	return stages
}

func subtreeStake(n *forest.Node) decimal.Decimal {
	total := n.Participant.StakedAmount
	for _, child := range n.Children {
		total = total.Add(subtreeStake(child))
	}
	return total
}
