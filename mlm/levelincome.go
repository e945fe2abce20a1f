package mlm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mlm-project/forest"
	"mlm-project/logger"
	"mlm-project/metrics"
)

// LevelIncome sums, over the whole downline of address, each descendant's
// daily profit weighted by the level percentage of its depth below address.
// A participant missing from the forest earns zero.
func (e *Engine) LevelIncome(ctx context.Context, address string) (decimal.Decimal, error) {
	defer observe("level_income", time.Now())

	if _, err := e.Participant(ctx, address); err != nil {
		return decimal.Zero, err
	}
	f, err := e.snapshotForest(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	node := f.Find(address)
	if node == nil {
		return decimal.Zero, nil
	}
	income := e.downlineIncome(node, 0)

	logger.Logger.Debug("Level income computed",
		zap.String("wallet_address", address),
		zap.String("level_income", income.String()))
	return income, nil
}

func (e *Engine) downlineIncome(n *forest.Node, depth int) decimal.Decimal {
	if depth >= len(e.tables.LevelPercentages) {
		return decimal.Zero
	}
	total := n.Participant.DailyProfitAmount.Mul(e.tables.LevelShare(depth))
	for _, child := range n.Children {
		total = total.Add(e.downlineIncome(child, depth+1))
	}
	return total
}

// PathLevelIncome follows the single sponsor path from the root down to
// address. The target contributes PathBaseRate of its daily profit, and the
// amount is multiplied by PathDecay once for every ancestor it passes on the
// way back up. Siblings never contribute.
func (e *Engine) PathLevelIncome(ctx context.Context, address string) (decimal.Decimal, error) {
	defer observe("path_level_income", time.Now())

	if _, err := e.Participant(ctx, address); err != nil {
		return decimal.Zero, err
	}
	f, err := e.snapshotForest(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if f.Find(address) == nil {
		return decimal.Zero, nil
	}

	for _, root := range f.Roots {
		if income := e.pathIncome(root, address); income.IsPositive() {
			return income, nil
		}
	}
	return decimal.Zero, nil
}

func (e *Engine) pathIncome(n *forest.Node, target string) decimal.Decimal {
	if n.Participant.WalletAddress == target {
		return n.Participant.DailyProfitAmount.Mul(e.tables.PathBaseRate)
	}
	for _, child := range n.Children {
		if income := e.pathIncome(child, target); income.IsPositive() {
			return income.Mul(e.tables.PathDecay)
		}
	}
	return decimal.Zero
}

func observe(operation string, start time.Time) {
	metrics.TraversalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
