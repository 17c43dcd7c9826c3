// Package signal implements per-intersection control: the green/yellow
// phase state machine, the observation encoder, and the reward evaluator.
package signal

import (
	"strings"

	"github.com/samber/lo"
)

// Streams is the fixed partition of an intersection's incoming lanes into
// the two competing right-of-way groups. A is the vertical (north-south)
// group, B the horizontal (east-west) group.
type Streams struct {
	A []string
	B []string
}

// PartitionLanes splits lanes by the naming convention of the network:
// lanes whose ID contains verticalToken belong to the north-south stream,
// everything else to east-west.
func PartitionLanes(lanes []string, verticalToken string) Streams {
	vertical := func(lane string, _ int) bool {
		return strings.Contains(lane, verticalToken)
	}
	return Streams{
		A: lo.Filter(lanes, vertical),
		B: lo.Reject(lanes, vertical),
	}
}
