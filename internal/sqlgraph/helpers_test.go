package sqlgraph

import "github.com/leapstack-labs/extsql/internal/dag"

func nodeIndex(i int) dag.NodeIndex { return dag.NodeIndex(i) }

func toInts(idx []dag.NodeIndex) []int {
	out := make([]int, len(idx))
	for i, n := range idx {
		out[i] = int(n)
	}
	return out
}
