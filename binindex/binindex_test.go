package binindex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mlm-project/binindex"
)

func TestTreeDepth(t *testing.T) {
	cases := map[int64]int{1: 0, 2: 1, 3: 1, 4: 2, 7: 2, 8: 3, 1023: 9, 1024: 10}
	for n, want := range cases {
		require.Equal(t, want, binindex.TreeDepth(n), "n=%d", n)
	}
}

func TestLevelOf_Bounds(t *testing.T) {
	for n := int64(1); n <= 300; n++ {
		root, err := binindex.LevelOf(n, 1)
		require.NoError(t, err)
		require.Equal(t, binindex.TreeDepth(n), root)

		for id := int64(1); id <= n; id++ {
			level, err := binindex.LevelOf(n, id)
			require.NoError(t, err)
			require.GreaterOrEqual(t, level, 0)
		}
	}
}

func TestLevelOf_OutOfRange(t *testing.T) {
	for _, id := range []int64{0, -1, 8} {
		_, err := binindex.LevelOf(7, id)
		require.ErrorIs(t, err, binindex.ErrOutOfRange)

		var rangeErr *binindex.OutOfRangeError
		require.ErrorAs(t, err, &rangeErr)
		require.Equal(t, id, rangeErr.ID)
	}
}

func TestIsLastLevelFull(t *testing.T) {
	full := map[int64]bool{}
	for k := 1; k <= 20; k++ {
		full[int64(1)<<k-1] = true
	}
	for n := int64(1); n <= 5000; n++ {
		require.Equal(t, full[n], binindex.IsLastLevelFull(n), "n=%d", n)
	}
	require.False(t, binindex.IsLastLevelFull(0))
}

func TestSevenNodes(t *testing.T) {
	require.True(t, binindex.IsLastLevelFull(7))
	level, err := binindex.LevelOf(7, 7)
	require.NoError(t, err)
	require.Equal(t, 0, level)
}

func TestNodesAtLevel(t *testing.T) {
	require.Equal(t, int64(0), binindex.NodesAtLevel(-1))
	require.Equal(t, int64(1), binindex.NodesAtLevel(0))
	require.Equal(t, int64(65536), binindex.NodesAtLevel(16))
}
