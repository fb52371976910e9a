// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

// UnionFind partitions record indices 0..n-1 into merge groups. It stores
// parents as a flat index array with path compression. Union always keeps
// the smaller index as the root, so the representative of every group is
// its first-seen record regardless of merge order.
type UnionFind struct {
	parent []int
}

// NewUnionFind creates n singleton sets.
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find returns the representative of the set containing x, compressing the
// path along the way.
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

// Union merges the sets containing x and y. The smaller root wins.
func (uf *UnionFind) Union(x, y int) {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return
	}
	if rx > ry {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
}

// Connected reports whether x and y belong to the same set.
func (uf *UnionFind) Connected(x, y int) bool {
	return uf.Find(x) == uf.Find(y)
}

// Components returns the sets ordered by root index, each with ascending
// members. The order is stable for a fixed sequence of unions.
func (uf *UnionFind) Components() [][]int {
	groups := make(map[int][]int)
	for i := range uf.parent {
		root := uf.Find(i)
		groups[root] = append(groups[root], i)
	}
	result := make([][]int, 0, len(groups))
	for i := range uf.parent {
		if members, ok := groups[i]; ok {
			result = append(result, members)
		}
	}
	return result
}
