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

// Package cascade 提供消除玩法的盤面操作。
//
// 盤面一律以 row-major 平攤成 []int16，idx = row*cols + reel，0 代表空格。
package cascade

// Grid 可視盤面快照
type Grid struct {
	Cols  int
	Rows  int
	Cells []int16
}

func NewGrid(cols, rows int) Grid {
	return Grid{Cols: cols, Rows: rows, Cells: make([]int16, cols*rows)}
}

// Index reel/row → 平攤位置
func (g Grid) Index(reel, row int) int { return row*g.Cols + reel }

// At 越界回傳 0
func (g Grid) At(reel, row int) int16 {
	if reel < 0 || reel >= g.Cols || row < 0 || row >= g.Rows {
		return 0
	}
	return g.Cells[g.Index(reel, row)]
}

// Clone 深拷貝
func (g Grid) Clone() Grid {
	c := g
	c.Cells = append([]int16(nil), g.Cells...)
	return c
}

// Empty 空格數
func (g Grid) Empty() int {
	n := 0
	for _, v := range g.Cells {
		if v == 0 {
			n++
		}
	}
	return n
}
