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

package session

import (
	"context"
	"time"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/cascade"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/spec"
)

// Tumble 消除掉落玩法。每個 reevaluation spin 是一次 cascade：
// 依目前盤面找出得分位置、消除、掉落、以下一步的停輪位置補滿，再滾這一步的分。
// 整段 cascade 結束後只在 Rollup 對帳一次。
type Tumble struct {
	inner  Strategy
	finder cascade.ClusterFinder
	fill   []int
}

// NewTumble 以 inner 決定停輪時序與首次落定
func NewTumble(inner Strategy) *Tumble {
	return &Tumble{inner: inner}
}

func (t *Tumble) Name() string { return "tumble/" + t.inner.Name() }

func (t *Tumble) StopOrder(layout *spec.LayoutSetting, n *outcome.Node, anticipation time.Duration) StopOrder {
	return t.inner.StopOrder(layout, n, anticipation)
}

func (t *Tumble) Settle(ctx context.Context, s *Session, n *outcome.Node) error {
	return t.inner.Settle(ctx, s, n)
}

// ConsumeReevaluations 消化一個 cascade 步驟
func (t *Tumble) ConsumeReevaluations(ctx context.Context, s *Session) (State, error) {
	if len(s.reevalQueue) == 0 {
		return s.nextAfterDisplay(), nil
	}
	prev := s.current
	next := s.reevalQueue[0]
	s.reevalQueue = s.reevalQueue[1:]
	s.current = next
	s.report.Reevaluations++

	layer := max(next.Layer(), 0)
	g := s.env.Surface.Snapshot(layer)
	removed := t.winningPositions(s, prev, g)
	if len(removed) > 0 {
		out := g.Clone()
		cascade.Clear(out.Cells, removed)
		t.fill = growInts(t.fill, out.Cols)
		cascade.Gravity(out.Cells, out.Cols, out.Rows, t.fill)
		if strips := t.strips(s, next); strips != nil {
			cascade.FillFromStops(out.Cells, strips, t.fill, next.SpinStops(), out.Cols)
		}
		if err := s.env.Surface.SetGrid(ctx, layer, out, removed); err != nil {
			errs.Report(s.log, "tumble", errs.Wrap(err, "surface"))
		}
	}
	s.applyDirectives(ctx, next)

	s.rollupNow(ctx, next.TotalWin())
	next.ProcessBonus(s.catalog, s.classifyOpts())
	s.runHooks(ctx, HookPostPaylineDisplay)
	return s.nextAfterDisplay(), nil
}

// winningPositions 以消除前的盤面計算 n 的得分位置
func (t *Tumble) winningPositions(s *Session, n *outcome.Node, g cascade.Grid) []int16 {
	if n == nil || len(g.Cells) == 0 {
		return nil
	}
	syms := &s.game.Symbols
	t.finder.IsWild = syms.IsWild
	t.finder.IsPaying = syms.IsPaying
	t.finder.MinSize = s.settings.MinCluster

	var sets [][]int16
	for _, w := range n.SubOutcomes() {
		if w.WinAmount() <= 0 && len(outcome.GetLocal[[]int](w, outcome.KeyPositions, nil)) == 0 {
			continue
		}
		if pos := outcome.GetLocal[[]int](w, outcome.KeyPositions, nil); len(pos) > 0 {
			sets = append(sets, toCells(pos, len(g.Cells)))
			continue
		}
		sym, _ := syms.ID(outcome.GetLocal(w, outcome.KeySymbol, ""))
		switch s.settings.TumbleWin {
		case spec.TumbleByScatter:
			if sym != 0 {
				sets = append(sets, cascade.ScatterPositions(g, sym))
			}
		case spec.TumbleByPayline:
			line := outcome.GetLocal(w, outcome.KeyLine, -1)
			if line < 0 || line >= len(s.game.Paylines) {
				errs.Report(s.log, "tumble", errs.Config("payline %d not configured", line))
				continue
			}
			sets = append(sets, cascade.LinePositions(g, s.game.Paylines[line], outcome.GetLocal(w, outcome.KeyCount, g.Cols)))
		default:
			if sym != 0 {
				sets = append(sets, t.finder.Find(g, sym)...)
			}
		}
	}
	if len(sets) == 0 && s.settings.TumbleWin == spec.TumbleByCluster && n.TotalWin() > 0 {
		sets = t.finder.Find(g, 0)
	}
	return cascade.Union(sets...)
}

// strips 下一步使用的輪帶；找不到時不補，留空
func (t *Tumble) strips(s *Session, n *outcome.Node) [][]int16 {
	name := n.ReelSetName()
	if name == "" {
		name = s.reelSet
	}
	rs, err := s.game.ReelSet(name)
	if err != nil {
		errs.Report(s.log, "tumble", err)
		return nil
	}
	return rs.Strips()
}

func toCells(pos []int, n int) []int16 {
	out := make([]int16, 0, len(pos))
	for _, p := range pos {
		if p >= 0 && p < n {
			out = append(out, int16(p))
		}
	}
	return out
}

func growInts(buf []int, n int) []int {
	if cap(buf) < n {
		return make([]int, n)
	}
	return buf[:n]
}

func isTumble(st Strategy) bool {
	_, ok := st.(*Tumble)
	return ok
}
