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

package outcome

import (
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/spec"
)

// Catalog 分類時查 bonus 名稱用的目錄
type Catalog interface {
	Lookup(cat Category, name string) (spec.BonusMeta, bool)
	Excluded(name string) bool
}

// CatalogOf 把設定檔中的 bonus_catalog 包成 Catalog
func CatalogOf(bc *spec.BonusCatalog) Catalog {
	v := &catalogView{bc: bc, excluded: make(map[string]struct{}, len(bc.Excluded))}
	for _, name := range bc.Excluded {
		v.excluded[name] = struct{}{}
	}
	return v
}

type catalogView struct {
	bc       *spec.BonusCatalog
	excluded map[string]struct{}
}

func (v *catalogView) Lookup(cat Category, name string) (spec.BonusMeta, bool) {
	var m map[string]spec.BonusMeta
	switch cat {
	case Portal:
		m = v.bc.Portal
	case Scatter:
		m = v.bc.Scatter
	case Gifting:
		m = v.bc.Gifting
	case Credit:
		m = v.bc.Credit
	case Challenge:
		m = v.bc.Challenge
	}
	meta, ok := m[name]
	return meta, ok
}

func (v *catalogView) Excluded(name string) bool {
	_, ok := v.excluded[name]
	return ok
}

// Options 分類參數
type Options struct {
	// RelativeMultiplier credit bonus 的 winAmount = credits * RelativeMultiplier，零值視為 1
	RelativeMultiplier decimal.Decimal
	// Gifts 神秘禮物待處理佇列，nil 則不收集
	Gifts *GiftQueue
	// TriggeringAdditional 為 true 時每次呼叫 ProcessBonus 都重新分類
	TriggeringAdditional bool
	Log                  *slog.Logger
}

// Bonus 分類結果
type Bonus struct {
	Category  Category
	Name      string
	Node      *Node
	Meta      spec.BonusMeta
	WinAmount int64
	// Choices 非空代表這是一個讓玩家選 bonus 的 scatter 得分
	Choices   []string
	FromQueue bool
	// OnSpin bonus 由 spin 本身宣告；它的子結果屬於 base game，不是 bonus 的內容
	OnSpin    bool
}

type classState struct {
	classified bool
	queued     bool
	gifted     bool
	processed  bool

	cat Catalog
	opt Options

	queue   []*Node
	current *Bonus
	table   map[Category]*Bonus
	portal  *Bonus

	winSet    bool
	winAmount int64
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// ProcessBonus 分類本節點的 bonus。除非 TriggeringAdditional，否則只跑一次。
func (n *Node) ProcessBonus(cat Catalog, opt Options) {
	if n.cls.classified && !opt.TriggeringAdditional {
		return
	}
	if cat == nil {
		cat = CatalogOf(&spec.BonusCatalog{})
	}
	n.cls.cat = cat
	n.cls.opt = opt
	n.classify()
}

// ProcessNextBonusInQueue 清掉旗標後重新分類，回傳是否還有 bonus
func (n *Node) ProcessNextBonusInQueue() bool {
	n.ResetBonusFlags()
	if n.cls.cat == nil {
		return false
	}
	n.classify()
	return n.IsBonus()
}

// ResetBonusFlags 清除五個 bonus 旗標與本輪分類結果
func (n *Node) ResetBonusFlags() {
	n.cls.current = nil
	n.cls.portal = nil
	n.cls.table = nil
}

// AdvanceQueue 目前的 bonus 已完成：來自佇列就出列，來自自身或子結果就標記為已處理。
// 分類沒命中但佇列非空時，直接丟掉佇列頭。
func (n *Node) AdvanceQueue() {
	cur := n.cls.current
	switch {
	case cur == nil:
		if len(n.cls.queue) > 0 {
			n.cls.queue = n.cls.queue[1:]
		}
	case cur.FromQueue:
		if len(n.cls.queue) > 0 {
			n.cls.queue = n.cls.queue[1:]
		}
	default:
		cur.Node.cls.processed = true
	}
	n.ResetBonusFlags()
}

// RemoveFromQueue 移除佇列中指定節點
func (n *Node) RemoveFromQueue(target *Node) bool {
	for i, q := range n.cls.queue {
		if q == target {
			n.cls.queue = append(n.cls.queue[:i:i], n.cls.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Processed 本節點的 bonus 是否已處理過
func (n *Node) Processed() bool { return n.cls.processed }

func (n *Node) IsBonus() bool { return n.cls.current != nil }
func (n *Node) IsPortal() bool { return n.is(Portal) }
func (n *Node) IsScatter() bool { return n.is(Scatter) }
func (n *Node) IsGifting() bool { return n.is(Gifting) }
func (n *Node) IsCredit() bool { return n.is(Credit) }
func (n *Node) IsChallenge() bool { return n.is(Challenge) }
func (n *Node) Bonus() *Bonus { return n.cls.current }
func (n *Node) PortalChild() *Bonus { return n.cls.portal }

// BonusFor 依類別取本輪分類結果
func (n *Node) BonusFor(c Category) *Bonus { return n.cls.table[c] }

// HasQueuedBonuses 佇列是否還有 bonus，與 IsBonus 需一起檢查
func (n *Node) HasQueuedBonuses() bool { return len(n.cls.queue) > 0 }

// BonusQueue 佇列快照
func (n *Node) BonusQueue() []*Node {
	return append([]*Node(nil), n.cls.queue...)
}

func (n *Node) is(c Category) bool {
	return n.cls.current != nil && n.cls.current.Category == c
}

// ============================================================
// ** 分類流程 **
// ============================================================

func (n *Node) classify() {
	n.cls.classified = true

	// 1. reevaluations → bonus_games 依序入列（只做一次）
	if !n.cls.queued {
		n.cls.queued = true
		for _, e := range n.reevaluations() {
			games, ok := e[KeyBonusGames].([]any)
			if !ok {
				continue
			}
			for _, d := range mapsOf(games) {
				child := New(d)
				child.ProcessBonus(n.cls.cat, n.cls.opt)
				n.cls.queue = append(n.cls.queue, child)
			}
		}
	}

	// 2. 清空本輪分類表
	n.cls.table = map[Category]*Bonus{}
	n.cls.current = nil
	n.cls.portal = nil

	// 3. 神秘禮物（只收一次）
	if !n.cls.gifted {
		n.cls.gifted = true
		n.collectGifts(n.cls.opt.Gifts)
	}

	// 4. 依類別順序深度優先搜尋，先命中者勝出
	for _, c := range searchOrder {
		m, fromQueue := n.find(n.matcher(c))
		if m == nil {
			continue
		}
		n.setBonus(c, m, fromQueue)
		break
	}
	if n.cls.current == nil {
		// bonus game choice：提供玩家選擇的 scatter 得分
		if m, fromQueue := n.find(isChoice); m != nil {
			b := n.setBonus(Scatter, m, fromQueue)
			b.Choices = GetLocal[[]string](m, KeyBonusChoices, nil)
		}
	}
	if n.cls.current == nil {
		n.reportUnmatched()
		return
	}

	b := n.cls.current
	switch b.Category {
	case Portal:
		// 5. portal 直接串到第一個巢狀 bonus
		n.cls.portal = n.nestedBonus(b.Node)
	case Credit:
		// 6. credit 直接派彩，不進 bonus 畫面
		b.WinAmount = n.creditWin(b.Node)
		b.Node.cls.winSet = true
		b.Node.cls.winAmount = b.WinAmount
	}
}

func (n *Node) setBonus(c Category, m *Node, fromQueue bool) *Bonus {
	meta, _ := n.cls.cat.Lookup(c, m.BonusGame())
	b := &Bonus{Category: c, Name: m.BonusGame(), Node: m, Meta: meta, WinAmount: m.WinAmount(), FromQueue: fromQueue}
	b.OnSpin = m == n && !fromQueue
	n.cls.table[c] = b
	n.cls.current = b
	return b
}

func (n *Node) matcher(c Category) func(*Node) bool {
	cat := n.cls.cat
	return func(m *Node) bool {
		if m.cls.processed {
			return false
		}
		name := m.BonusGame()
		if name == "" || cat.Excluded(name) {
			return false
		}
		_, ok := cat.Lookup(c, name)
		return ok
	}
}

func isChoice(m *Node) bool {
	if m.cls.processed || m.Type() != ScatterWin {
		return false
	}
	return len(GetLocal[[]any](m, KeyBonusChoices, nil)) > 0
}

// find 自身 → 子結果（遞迴）→ 佇列頭
func (n *Node) find(match func(*Node) bool) (*Node, bool) {
	if m := findTree(n, match); m != nil {
		return m, false
	}
	if len(n.cls.queue) > 0 {
		if m := findTree(n.cls.queue[0], match); m != nil {
			return m, true
		}
	}
	return nil, false
}

func findTree(n *Node, match func(*Node) bool) *Node {
	if match(n) {
		return n
	}
	for _, s := range n.SubOutcomes() {
		if m := findTree(s, match); m != nil {
			return m
		}
	}
	return nil
}

// nestedBonus portal 底下第一個非 portal 的 bonus，不含 portal 自身
func (n *Node) nestedBonus(portal *Node) *Bonus {
	for _, c := range searchOrder {
		if c == Portal {
			continue
		}
		match := n.matcher(c)
		for _, s := range portal.SubOutcomes() {
			if m := findTree(s, match); m != nil {
				meta, _ := n.cls.cat.Lookup(c, m.BonusGame())
				return &Bonus{Category: c, Name: m.BonusGame(), Node: m, Meta: meta, WinAmount: m.WinAmount()}
			}
		}
	}
	return nil
}

func (n *Node) creditWin(m *Node) int64 {
	credits, ok := convert[decimal.Decimal](m.doc[KeyCredits])
	if !ok {
		return m.WinAmount()
	}
	mult := n.cls.opt.RelativeMultiplier
	if mult.IsZero() {
		mult = decimal.NewFromInt(1)
	}
	return credits.Mul(mult).Round(0).IntPart()
}

// reportUnmatched 自身宣告了 bonus 名稱卻沒有任何目錄命中
func (n *Node) reportUnmatched() {
	name := n.BonusGame()
	if name == "" || n.cls.processed || n.cls.cat.Excluded(name) {
		return
	}
	errs.Report(n.cls.opt.Log, "bonus classification",
		errs.Consistency("bonus %q not found in any catalog", name))
}
