package forest_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"mlm-project/forest"
	"mlm-project/models"
)

func p(id int64, address string, sponsor string) *models.Participant {
	participant := &models.Participant{ID: id, WalletAddress: address}
	if sponsor != "" {
		participant.SponsorAddress = &sponsor
	}
	return participant
}

// population returns n participants where participant i is sponsored by a
// random earlier participant.
func population(n int, rnd *rand.Rand) []*models.Participant {
	out := []*models.Participant{p(1, "w1", "")}
	for i := 2; i <= n; i++ {
		sponsor := fmt.Sprintf("w%d", rnd.Intn(i-1)+1)
		out = append(out, p(int64(i), fmt.Sprintf("w%d", i), sponsor))
	}
	return out
}

func TestBuild_SingleTreeAnyOrder(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	participants := population(200, rnd)
	rnd.Shuffle(len(participants), func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})

	f, err := forest.Build(participants)
	require.NoError(t, err)
	require.Len(t, f.Roots, 1)
	require.Equal(t, "w1", f.Root.Participant.WalletAddress)
	require.Equal(t, 200, f.Len())

	// every parent chain reaches the root within P steps
	for _, part := range participants {
		cur := part
		steps := 0
		for cur.SponsorAddress != nil {
			cur = f.Find(*cur.SponsorAddress).Participant
			steps++
			require.LessOrEqual(t, steps, len(participants))
		}
		require.Equal(t, "w1", cur.WalletAddress)
	}

	count := 0
	var walk func(n *forest.Node)
	walk = func(n *forest.Node) {
		count++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(f.Root)
	require.Equal(t, 200, count)
}

func TestBuild_ChildrenInRegistrationOrder(t *testing.T) {
	f, err := forest.Build([]*models.Participant{
		p(4, "d", "a"),
		p(2, "b", "a"),
		p(1, "a", ""),
		p(3, "c", "a"),
	})
	require.NoError(t, err)

	root := f.Find("a")
	require.Len(t, root.Children, 3)
	require.Equal(t, "b", root.Children[0].Participant.WalletAddress)
	require.Equal(t, "c", root.Children[1].Participant.WalletAddress)
	require.Equal(t, "d", root.Children[2].Participant.WalletAddress)
}

func TestBuild_DanglingSponsor(t *testing.T) {
	_, err := forest.Build([]*models.Participant{
		p(2, "b", "ghost"),
		p(3, "c", "b"),
	})
	require.ErrorIs(t, err, forest.ErrDanglingSponsor)

	var dangling *forest.DanglingSponsorError
	require.ErrorAs(t, err, &dangling)
	require.Equal(t, "b", dangling.Address)
	require.Equal(t, "ghost", dangling.Sponsor)
}

func TestBuild_Cycle(t *testing.T) {
	_, err := forest.Build([]*models.Participant{
		p(1, "a", ""),
		p(2, "b", "c"),
		p(3, "c", "b"),
	})
	require.ErrorIs(t, err, forest.ErrCycle)
}

func TestBuild_Empty(t *testing.T) {
	f, err := forest.Build(nil)
	require.NoError(t, err)
	require.Nil(t, f.Root)
	require.Nil(t, f.Find("anything"))
}
