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

package spec

import "github.com/zintix-labs/spinflow/errs"

// Reel 一條輪帶
type Reel struct {
	Names       []string `yaml:"symbols" json:"symbols"`
	ReelSymbols []int16  `yaml:"-"       json:"-"`
}

// ReelSet 一組輪帶設定，一軸一條
type ReelSet struct {
	Weight int    `yaml:"weight" json:"weight"`
	Reels  []Reel `yaml:"reels"  json:"reels"`
}

func (rs *ReelSet) init(sym *SymbolSetting, cols int) error {
	if len(rs.Reels) != cols {
		return errs.Fatalf("reel set has %d reels, layout wants %d", len(rs.Reels), cols)
	}
	for i := range rs.Reels {
		reel := &rs.Reels[i]
		if len(reel.Names) == 0 {
			return errs.NewFatal("len(ReelSymbols) == 0")
		}
		reel.ReelSymbols = make([]int16, len(reel.Names))
		for j, name := range reel.Names {
			id, ok := sym.ID(name)
			if !ok {
				return errs.Fatalf("reel %d: unknown symbol %s", i, name)
			}
			reel.ReelSymbols[j] = id
		}
	}
	return nil
}

// Strips 各軸的編號輪帶
func (rs *ReelSet) Strips() [][]int16 {
	out := make([][]int16, len(rs.Reels))
	for i := range rs.Reels {
		out[i] = rs.Reels[i].ReelSymbols
	}
	return out
}

// Window 以 stops 為每軸最上列位置，切出 rows 列的可視盤面（row-major）
func (rs *ReelSet) Window(stops []int, rows int) ([]int16, error) {
	cols := len(rs.Reels)
	if len(stops) != cols {
		return nil, errs.Consistency("stops has %d entries, reel set has %d reels", len(stops), cols)
	}
	grid := make([]int16, rows*cols)
	for c, reel := range rs.Reels {
		strip := reel.ReelSymbols
		n := len(strip)
		for r := 0; r < rows; r++ {
			grid[r*cols+c] = strip[((stops[c]+r)%n+n)%n]
		}
	}
	return grid, nil
}
