// Package forest builds the sponsor tree from flat participant records.
//
// A Forest is built from one snapshot of the store, used by a single engine
// call and then discarded. It is never mutated after Build returns, so it may
// be traversed from several goroutines.
package forest

import (
	"errors"
	"fmt"
	"sort"

	"mlm-project/models"
)

var (
	ErrDanglingSponsor = errors.New("sponsor not present in participant set")
	ErrCycle           = errors.New("sponsor links contain a cycle")
)

// DanglingSponsorError names a participant whose sponsor is missing from the input.
type DanglingSponsorError struct {
	Address string
	Sponsor string
}

func (e *DanglingSponsorError) Error() string {
	return fmt.Sprintf("participant %s: sponsor %s not present in participant set", e.Address, e.Sponsor)
}

func (e *DanglingSponsorError) Unwrap() error { return ErrDanglingSponsor }

// Node wraps a participant with its direct referrals, ordered by id.
type Node struct {
	Participant *models.Participant
	Children    []*Node
}

// Forest maps wallet addresses to nodes. Root is the lowest-id participant
// without a sponsor; a well-formed population has exactly one such root.
type Forest struct {
	Root  *Node
	Roots []*Node
	nodes map[string]*Node
}

// Build links participants to their sponsors. Input order does not matter:
// records are ordered by id first, so every sponsor (registered earlier)
// is linked before its referrals and child lists come out in registration
// order.
func Build(participants []*models.Participant) (*Forest, error) {
	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	f := &Forest{nodes: make(map[string]*Node, len(ordered))}
	for _, p := range ordered {
		f.nodes[p.WalletAddress] = &Node{Participant: p}
	}

	for _, p := range ordered {
		node := f.nodes[p.WalletAddress]
		if p.SponsorAddress == nil {
			f.Roots = append(f.Roots, node)
			continue
		}
		parent, ok := f.nodes[*p.SponsorAddress]
		if !ok {
			return nil, &DanglingSponsorError{Address: p.WalletAddress, Sponsor: *p.SponsorAddress}
		}
		parent.Children = append(parent.Children, node)
	}

	if len(f.Roots) > 0 {
		f.Root = f.Roots[0]
	}
	if reached := f.reachable(); reached != len(f.nodes) {
		return nil, fmt.Errorf("%w: %d of %d participants unreachable from a root",
			ErrCycle, len(f.nodes)-reached, len(f.nodes))
	}
	return f, nil
}

func (f *Forest) reachable() int {
	stack := append([]*Node(nil), f.Roots...)
	seen := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen++
		stack = append(stack, n.Children...)
	}
	return seen
}

// Find returns the node for address, or nil.
func (f *Forest) Find(address string) *Node {
	return f.nodes[address]
}

// Len is the number of participants in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}
