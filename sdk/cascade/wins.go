// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cascade

import "slices"

// clusterBuf BFS 緩衝
type clusterBuf struct {
	q    []int
	hits []int16

	// visited 記錄普通符號是否已被任何 cluster 使用過
	visited []bool

	// wildMark 記錄 wild 在當前 cluster 是否已被訪問，配合 wildEpoch 避免每次清零
	wildMark  []int
	wildEpoch int
}

// ClusterFinder 在盤面上找出連通的同符號群組，wild 可加入任何群組但不能作為起點
type ClusterFinder struct {
	IsWild   func(int16) bool
	IsPaying func(int16) bool
	MinSize  int
	buf      clusterBuf
}

func (f *ClusterFinder) reset(n int) {
	b := &f.buf
	if cap(b.visited) < n {
		b.visited = make([]bool, n)
		b.wildMark = make([]int, n)
	}
	b.visited = b.visited[:n]
	b.wildMark = b.wildMark[:n]
	for i := range b.visited {
		b.visited[i] = false
	}
}

// Find 回傳每個達到 MinSize 的群組位置；only 非 0 時只找該符號
func (f *ClusterFinder) Find(g Grid, only int16) [][]int16 {
	rows, cols := g.Rows, g.Cols
	n := rows * cols
	f.reset(n)
	b := &f.buf

	isWild := f.IsWild
	if isWild == nil {
		isWild = func(int16) bool { return false }
	}
	isPaying := f.IsPaying
	if isPaying == nil {
		isPaying = func(s int16) bool { return s != 0 }
	}
	minSize := max(f.MinSize, 1)

	var out [][]int16
	for i := 0; i < n; i++ {
		sym := g.Cells[i]
		if sym == 0 || isWild(sym) || !isPaying(sym) || b.visited[i] {
			continue
		}
		if only != 0 && sym != only {
			continue
		}

		// 每個新 cluster 重置 wild 訪問狀態
		b.wildEpoch++
		epoch := b.wildEpoch

		b.q = append(b.q[:0], i)
		b.hits = append(b.hits[:0], int16(i))
		b.visited[i] = true

		for head := 0; head < len(b.q); head++ {
			curr := b.q[head]
			r, c := curr/cols, curr%cols

			visit := func(next int) {
				ns := g.Cells[next]
				if isWild(ns) {
					if b.wildMark[next] != epoch {
						b.wildMark[next] = epoch
						b.q = append(b.q, next)
						b.hits = append(b.hits, int16(next))
					}
					return
				}
				if ns == sym && !b.visited[next] {
					b.visited[next] = true
					b.q = append(b.q, next)
					b.hits = append(b.hits, int16(next))
				}
			}
			if c > 0 {
				visit(curr - 1)
			}
			if c+1 < cols {
				visit(curr + 1)
			}
			if r > 0 {
				visit(curr - cols)
			}
			if r+1 < rows {
				visit(curr + cols)
			}
		}

		if len(b.hits) < minSize {
			continue
		}
		cluster := append([]int16(nil), b.hits...)
		slices.Sort(cluster)
		out = append(out, cluster)
	}
	return out
}

// ScatterPositions 盤面上所有等於 sym 的位置
func ScatterPositions(g Grid, sym int16) []int16 {
	var out []int16
	for i, v := range g.Cells {
		if v == sym && v != 0 {
			out = append(out, int16(i))
		}
	}
	return out
}

// LinePositions 連線前 count 軸的位置。line[c] 為第 c 軸的列。
func LinePositions(g Grid, line []int, count int) []int16 {
	count = min(count, len(line), g.Cols)
	out := make([]int16, 0, count)
	for c := 0; c < count; c++ {
		r := line[c]
		if r < 0 || r >= g.Rows {
			continue
		}
		out = append(out, int16(g.Index(c, r)))
	}
	return out
}

// Union 合併多組位置，去重並排序
func Union(sets ...[]int16) []int16 {
	var out []int16
	for _, s := range sets {
		out = append(out, s...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
