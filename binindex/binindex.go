// Package binindex places participants on an idealised complete binary tree
// by registration order. It never looks at sponsor links; it only bounds how
// many levels of staking capacity a population of a given size can support.
package binindex

import (
	"errors"
	"fmt"
	"math/bits"
)

var ErrOutOfRange = errors.New("participant id out of range")

// OutOfRangeError reports an id outside [1, N].
type OutOfRangeError struct {
	ID int64
	N  int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("participant id %d out of range [1, %d]", e.ID, e.N)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// log2 is floor(log2(n)) for n >= 1.
func log2(n int64) int {
	return bits.Len64(uint64(n)) - 1
}

// TreeDepth is the number of complete levels below the root in a complete
// binary tree of n nodes. It is 0 for n < 1.
func TreeDepth(n int64) int {
	if n < 1 {
		return 0
	}
	return log2(n)
}

// LevelOf returns TreeDepth(n) - floor(log2(id)), i.e. how many levels sit
// below the node with the given id. The root (id 1) gets TreeDepth(n).
func LevelOf(n, id int64) (int, error) {
	if id < 1 || id > n {
		return 0, &OutOfRangeError{ID: id, N: n}
	}
	return TreeDepth(n) - log2(id), nil
}

// IsLastLevelFull reports whether the deepest level of a complete binary tree
// of n nodes has no free slot, which holds exactly when n = 2^k - 1.
func IsLastLevelFull(n int64) bool {
	if n < 1 {
		return false
	}
	levels := log2(n) + 1
	capacity := int64(1) << (levels - 1)
	occupied := n - capacity + 1
	return occupied == capacity
}

// NodesAtLevel is the capacity of a level: 2^level, or 0 for negative levels.
func NodesAtLevel(level int) int64 {
	if level < 0 {
		return 0
	}
	return int64(1) << level
}
