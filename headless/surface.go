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

// Package headless 提供不需要畫面的協作者實作：瞬間停輪的盤面、記憶體錢包、
// 只做紀錄的顯示層與可調速的時鐘。回放與測試都用它們驅動 session。
package headless

import (
	"context"
	"sync"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/cascade"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/spec"
)

// Surface 以輪帶設定直接算出停輪盤面，沒有任何動畫。
// Animations 可預設待完成的動畫數，每次查詢遞減一，用來模擬落定等待。
type Surface struct {
	mu   sync.Mutex
	game *spec.GameSetting

	reelSet      string
	grids        map[int]cascade.Grid
	replacements map[string]string
	stickies     map[outcome.Position]string

	Slam       bool
	Animations int

	Spins   int
	Stops   int
	Applied []outcome.Position
	Orders  []session.StopOrder
	Removed [][]int16
}

var _ session.ReelSurface = (*Surface)(nil)

func NewSurface(game *spec.GameSetting) *Surface {
	return &Surface{
		game:     game,
		grids:    map[int]cascade.Grid{},
		stickies: map[outcome.Position]string{},
	}
}

func (s *Surface) SpinReels(ctx context.Context, reels []int, layer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Spins++
	return nil
}

// StopReels 依目前輪帶組與停輪位置切出盤面；停輪數與軸數不合時保留原盤面
func (s *Surface) StopReels(ctx context.Context, stops []int, order session.StopOrder, layer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stops++
	s.Orders = append(s.Orders, order)
	if len(stops) == 0 {
		return nil
	}
	rs, err := s.game.ReelSet(s.reelSet)
	if err != nil {
		return err
	}
	cells, err := rs.Window(stops, s.game.Layout.Rows)
	if err != nil {
		return err
	}
	g := cascade.Grid{Cols: s.game.Layout.Columns, Rows: s.game.Layout.Rows, Cells: cells}
	for p, name := range s.stickies {
		if p.Layer == layer {
			s.put(g, p, name)
		}
	}
	s.grids[layer] = g
	return nil
}

func (s *Surface) AnimationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.Animations
	if s.Animations > 0 {
		s.Animations--
	}
	return n
}

func (s *Surface) SlamStopPressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Slam
}

// ApplySymbol 把圖標放到指定位置；未知圖標或越界位置為設定故障
func (s *Surface) ApplySymbol(pos outcome.Position, symbol string, sticky bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.replacements[symbol]; ok {
		symbol = r
	}
	if _, ok := s.game.Symbols.ID(symbol); !ok {
		return errs.Config("headless : unknown symbol %q", symbol)
	}
	if pos.Reel < 0 || pos.Reel >= s.game.Layout.Columns || pos.Row < 0 || pos.Row >= s.game.Layout.Rows {
		return errs.Config("headless : position %+v out of range", pos)
	}
	g := s.grid(pos.Layer)
	s.put(g, pos, symbol)
	if sticky {
		s.stickies[pos] = symbol
	}
	s.Applied = append(s.Applied, pos)
	return nil
}

func (s *Surface) SetReplacements(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replacements = m
}

func (s *Surface) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replacements = nil
}

func (s *Surface) ClearStickies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.stickies)
}

func (s *Surface) SetReelSet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.game.ReelSet(name); err != nil {
		return err
	}
	s.reelSet = name
	return nil
}

func (s *Surface) Snapshot(layer int) cascade.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid(layer).Clone()
}

func (s *Surface) SetGrid(ctx context.Context, layer int, g cascade.Grid, removed []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[layer] = g.Clone()
	s.Removed = append(s.Removed, append([]int16(nil), removed...))
	return nil
}

// ReelSetName 目前輪帶組
func (s *Surface) ReelSetName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reelSet
}

// SetSnapshot 直接指定盤面
func (s *Surface) SetSnapshot(layer int, g cascade.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[layer] = g.Clone()
}

func (s *Surface) grid(layer int) cascade.Grid {
	g, ok := s.grids[layer]
	if !ok {
		g = cascade.NewGrid(s.game.Layout.Columns, s.game.Layout.Rows)
		s.grids[layer] = g
	}
	return g
}

func (s *Surface) put(g cascade.Grid, pos outcome.Position, name string) {
	if id, ok := s.game.Symbols.ID(name); ok {
		g.Cells[g.Index(pos.Reel, pos.Row)] = id
	}
}
