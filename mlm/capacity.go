package mlm

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mlm-project/binindex"
	"mlm-project/repository"
)

type StakingCapacity struct {
	LevelsDown          int             `json:"levels_down"`
	TotalCapacityIncome decimal.Decimal `json:"total_capacity_income"`
}

// ProjectedStakingCapacity places address on the idealised binary tree of
// the current population and sums CapacityPerNode for every node slot on the
// complete levels below it, up to CapacityMaxLevels levels.
func (e *Engine) ProjectedStakingCapacity(ctx context.Context, address string) (StakingCapacity, error) {
	p, err := e.Participant(ctx, address)
	if err != nil {
		return StakingCapacity{}, err
	}
	population, err := e.repo.Count(ctx, repository.All())
	if err != nil {
		return StakingCapacity{}, err
	}

	level, err := binindex.LevelOf(population, p.ID)
	if err != nil {
		return StakingCapacity{}, fmt.Errorf("place participant %s: %w", address, err)
	}

	levelsDown := level
	if !binindex.IsLastLevelFull(population) {
		levelsDown--
	}
	if levelsDown < 0 {
		levelsDown = 0
	}

	income := decimal.Zero
	for i := 1; i <= levelsDown && i <= e.tables.CapacityMaxLevels; i++ {
		income = income.Add(e.tables.CapacityPerNode.Mul(decimal.NewFromInt(binindex.NodesAtLevel(i))))
	}

	return StakingCapacity{LevelsDown: levelsDown, TotalCapacityIncome: income}, nil
}
