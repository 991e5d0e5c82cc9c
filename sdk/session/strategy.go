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
	"slices"
	"time"

	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/spec"
)

// StopOrder 停輪時序：Groups[i] 內的格子同時停下，Delays[i] 為該組額外延遲
type StopOrder struct {
	Groups [][]outcome.Position
	Delays []time.Duration
	index  map[outcome.Position]int
}

func newStopOrder(groups [][]outcome.Position, delays []time.Duration) StopOrder {
	o := StopOrder{Groups: groups, Delays: delays, index: map[outcome.Position]int{}}
	for i, g := range groups {
		for _, p := range g {
			o.index[p] = i
		}
	}
	return o
}

// IndexOf 回傳格子所屬的時序組
func (o StopOrder) IndexOf(reel, row, layer int) (int, bool) {
	i, ok := o.index[outcome.Position{Reel: reel, Row: row, Layer: layer}]
	return i, ok
}

// Strategy 盤面變體的可插拔行為：停輪時序、reevaluation 消化方式、落定方式
type Strategy interface {
	Name() string
	StopOrder(layout *spec.LayoutSetting, n *outcome.Node, anticipation time.Duration) StopOrder
	ConsumeReevaluations(ctx context.Context, s *Session) (State, error)
	Settle(ctx context.Context, s *Session, n *outcome.Node) error
}

// StrategyFor 依設定建立策略；tumble 包在停輪策略外層
func StrategyFor(ss *spec.SessionSetting) Strategy {
	var st Strategy
	switch ss.StopOrder {
	case spec.StopOrderLayered:
		st = Layered{}
	case spec.StopOrderIndependent:
		st = Independent{}
	default:
		st = Standard{}
	}
	if ss.Tumble {
		return NewTumble(st)
	}
	return st
}

// base 預設的 reevaluation 與落定行為
type base struct{}

func (base) ConsumeReevaluations(ctx context.Context, s *Session) (State, error) {
	return s.replayNext(ctx)
}

func (base) Settle(ctx context.Context, s *Session, n *outcome.Node) error {
	return s.settle(ctx, n)
}

// Standard 一軸一組由左至右；連動軸併入最小軸的那組
type Standard struct{ base }

func (Standard) Name() string { return string(spec.StopOrderStandard) }

func (Standard) StopOrder(layout *spec.LayoutSetting, n *outcome.Node, anticipation time.Duration) StopOrder {
	lead := linkLeads(layout, n)
	var groups [][]outcome.Position
	var heads []int
	for l := 0; l < layout.Layers; l++ {
		slot := map[int]int{}
		for c := 0; c < layout.Columns; c++ {
			g, ok := slot[lead[c]]
			if !ok {
				g = len(groups)
				slot[lead[c]] = g
				groups = append(groups, nil)
				heads = append(heads, c)
			}
			for r := 0; r < layout.Rows; r++ {
				groups[g] = append(groups[g], outcome.Position{Reel: c, Row: r, Layer: l})
			}
		}
	}
	return newStopOrder(groups, anticipationDelays(heads, n, anticipation))
}

// Layered 同一軸的所有盤面一起停
type Layered struct{ base }

func (Layered) Name() string { return string(spec.StopOrderLayered) }

func (Layered) StopOrder(layout *spec.LayoutSetting, n *outcome.Node, anticipation time.Duration) StopOrder {
	lead := linkLeads(layout, n)
	var groups [][]outcome.Position
	var heads []int
	slot := map[int]int{}
	for c := 0; c < layout.Columns; c++ {
		g, ok := slot[lead[c]]
		if !ok {
			g = len(groups)
			slot[lead[c]] = g
			groups = append(groups, nil)
			heads = append(heads, c)
		}
		for l := 0; l < layout.Layers; l++ {
			for r := 0; r < layout.Rows; r++ {
				groups[g] = append(groups[g], outcome.Position{Reel: c, Row: r, Layer: l})
			}
		}
	}
	return newStopOrder(groups, anticipationDelays(heads, n, anticipation))
}

// Independent 每一格都是獨立的輪，依軸再依列
type Independent struct{ base }

func (Independent) Name() string { return string(spec.StopOrderIndependent) }

func (Independent) StopOrder(layout *spec.LayoutSetting, n *outcome.Node, anticipation time.Duration) StopOrder {
	var groups [][]outcome.Position
	var heads []int
	for l := 0; l < layout.Layers; l++ {
		for c := 0; c < layout.Columns; c++ {
			for r := 0; r < layout.Rows; r++ {
				groups = append(groups, []outcome.Position{{Reel: c, Row: r, Layer: l}})
				heads = append(heads, c)
			}
		}
	}
	return newStopOrder(groups, anticipationDelays(heads, n, anticipation))
}

// linkLeads 每軸對應到所屬連動組的最小軸；有共同軸的組會合併成同一組
func linkLeads(layout *spec.LayoutSetting, n *outcome.Node) []int {
	lead := make([]int, layout.Columns)
	for c := range lead {
		lead[c] = c
	}
	find := func(c int) int {
		for lead[c] != c {
			lead[c] = lead[lead[c]]
			c = lead[c]
		}
		return c
	}
	links := slices.Clone(layout.Linked)
	if n != nil {
		links = append(links, n.LinkedReels()...)
	}
	for _, group := range links {
		root := -1
		for _, c := range group {
			if c < 0 || c >= len(lead) {
				continue
			}
			r := find(c)
			switch {
			case root < 0:
				root = r
			case r < root:
				lead[root] = r
				root = r
			case r > root:
				lead[r] = root
			}
		}
	}
	for c := range lead {
		lead[c] = find(c)
	}
	return lead
}

// anticipationDelays 觸發軸之後的每一組都加上期待延遲
func anticipationDelays(heads []int, n *outcome.Node, d time.Duration) []time.Duration {
	delays := make([]time.Duration, len(heads))
	if n == nil {
		return delays
	}
	first := -1
	for _, t := range n.AnticipationTriggers() {
		if first < 0 || t.Reel < first {
			first = t.Reel
		}
	}
	if first < 0 {
		return delays
	}
	for i, c := range heads {
		if c > first {
			delays[i] = d
		}
	}
	return delays
}
