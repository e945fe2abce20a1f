package mlm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"mlm-project/mlm"
)

// A -> B -> C -> D chain plus a second leg A -> E.
func levelFixture(t *testing.T) *mlm.Engine {
	t.Helper()
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, "A",
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"}, [2]string{"A", "E"},
	)
	for address, amount := range map[string]string{
		"B": "1000", // 4 a day
		"C": "5500", // 41.25 a day
		"D": "8000", // 80 a day
		"E": "100",  // 0.4 a day
	} {
		_, err := e.Stake(ctx, address, dec(amount))
		require.NoError(t, err)
	}
	return e
}

func TestLevelIncome_Downline(t *testing.T) {
	e := levelFixture(t)
	ctx := context.Background()

	// B 4x40% + C 41.25x15% + D 80x10% + E 0.4x40%
	income, err := e.LevelIncome(ctx, "A")
	require.NoError(t, err)
	requireDecimal(t, "15.9475", income)

	// C 41.25x40% + D 80x15%
	income, err = e.LevelIncome(ctx, "B")
	require.NoError(t, err)
	requireDecimal(t, "28.5", income)

	income, err = e.LevelIncome(ctx, "D")
	require.NoError(t, err)
	requireDecimal(t, "0", income)
}

func TestLevelIncome_NotRegistered(t *testing.T) {
	e := levelFixture(t)
	_, err := e.LevelIncome(context.Background(), "nobody")
	require.ErrorIs(t, err, mlm.ErrNotFound)
}

func TestLevelIncome_DepthBeyondTable(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, "n0")

	tables := e.Tables()
	depth := len(tables.LevelPercentages) + 2
	for i := 1; i <= depth; i++ {
		_, err := e.RegisterReferral(ctx, fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i))
		require.NoError(t, err)
		_, err = e.Stake(ctx, fmt.Sprintf("n%d", i), dec("1000"))
		require.NoError(t, err)
	}

	// every descendant earns 4 a day; only depths 1..30 pay
	want := dec("0")
	for d := 1; d < len(tables.LevelPercentages); d++ {
		want = want.Add(dec("4").Mul(tables.LevelShare(d)))
	}
	income, err := e.LevelIncome(ctx, "n0")
	require.NoError(t, err)
	require.True(t, want.Equal(income), "want %s, got %s", want, income)
	requireDecimal(t, "0", tables.LevelShare(len(tables.LevelPercentages)))
}

func TestPathLevelIncome(t *testing.T) {
	e := levelFixture(t)
	ctx := context.Background()

	// 80 x 0.40, decayed by 0.15 for each of C, B, A
	income, err := e.PathLevelIncome(ctx, "D")
	require.NoError(t, err)
	requireDecimal(t, "0.108", income)

	income, err = e.PathLevelIncome(ctx, "B")
	require.NoError(t, err)
	requireDecimal(t, "0.24", income)

	// second leg is found even though the first leg is searched first
	income, err = e.PathLevelIncome(ctx, "E")
	require.NoError(t, err)
	requireDecimal(t, "0.024", income)

	// the root has no stake of its own
	income, err = e.PathLevelIncome(ctx, "A")
	require.NoError(t, err)
	requireDecimal(t, "0", income)

	_, err = e.PathLevelIncome(ctx, "nobody")
	require.ErrorIs(t, err, mlm.ErrNotFound)
}
