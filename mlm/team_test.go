package mlm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mlm-project/mlm"
)

func TestTeamDevIncome_LegBalancing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, "R",
		[2]string{"R", "X"}, [2]string{"R", "Y"}, [2]string{"Y", "Y1"}, [2]string{"R", "Z"},
	)
	for address, amount := range map[string]string{
		"R":  "9000", // the reference node's own stake is not business
		"X":  "3000",
		"Y":  "1000",
		"Y1": "2000",
		"Z":  "100",
	} {
		_, err := e.Stake(ctx, address, dec(amount))
		require.NoError(t, err)
	}

	income, err := e.TeamDevIncome(ctx, "R")
	require.NoError(t, err)

	require.Len(t, income.Legs, 3)
	require.Equal(t, "Y", income.Legs[1].Address)
	requireDecimal(t, "3000", income.Legs[1].Business)
	requireDecimal(t, "6100", income.TotalDownlineBusiness)
	requireDecimal(t, "3000", income.HighestLeg)
	requireDecimal(t, "3100", income.RestOfDownline)

	// 2500 needs 1250 per side; 6000 needs exactly 3000 on the strong leg
	require.Len(t, income.QualifyingStages, 2)
	requireDecimal(t, "2500", income.QualifyingStages[0].TotalBusiness)
	requireDecimal(t, "6000", income.QualifyingStages[1].TotalBusiness)
	requireDecimal(t, "5", income.QualifyingStages[1].DailyPayout)
	require.Equal(t, 3, income.QualifyingStages[1].Months)
}

func TestTeamDevIncome_Unbalanced(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, "R", [2]string{"R", "X"}, [2]string{"R", "Y"})
	_, err := e.Stake(ctx, "X", dec("10000"))
	require.NoError(t, err)
	_, err = e.Stake(ctx, "Y", dec("1249"))
	require.NoError(t, err)

	income, err := e.TeamDevIncome(ctx, "R")
	require.NoError(t, err)
	require.Empty(t, income.QualifyingStages)
	requireDecimal(t, "11249", income.TotalDownlineBusiness)
}

func TestTeamDevIncome_NoDownline(t *testing.T) {
	e, _ := newTestEngine(t)
	register(t, e, "R")

	income, err := e.TeamDevIncome(context.Background(), "R")
	require.NoError(t, err)
	require.Empty(t, income.Legs)
	require.Empty(t, income.QualifyingStages)
	requireDecimal(t, "0", income.TotalDownlineBusiness)

	_, err = e.TeamDevIncome(context.Background(), "nobody")
	require.ErrorIs(t, err, mlm.ErrNotFound)
}
