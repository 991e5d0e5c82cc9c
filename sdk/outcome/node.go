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

// Package outcome 把 server 回傳的巢狀結果文件包成可查詢的樹。
//
// 每個 Node 包住一段文件（map/array/scalar），取值時先查自身，找不到再沿 parent 往上查；
// 子結果、重新計算 spin、bonus 分類都只計算一次並快取。
package outcome

// Wire keys
const (
	KeyOutcomeType      = "outcome_type"
	KeyType             = "type"
	KeyOutcomes         = "outcomes"
	KeyBonus            = "bonus"
	KeyBonusGame        = "bonus_game"
	KeyBonusGames       = "bonus_games"
	KeyBonusChoices     = "bonus_choices"
	KeyReelStops        = "reel_stops"
	KeyReevaluatedStops = "reevaluated_stops"
	KeyReevaluations    = "reevaluations"
	KeyMutations        = "mutations"
	KeyNewStickies      = "new_stickies"
	KeyLinkedReels      = "linked_reels"
	KeyAnticipationInfo = "anticipation_info"
	KeyTriggers         = "triggers"
	KeyStaticReels      = "static_reels"
	KeyOverrideSymbols  = "override_symbols"
	KeyReplacement      = "replacement_symbols"
	KeyReelSet          = "reel_set"
	KeyLayer            = "layer"
	KeyLayers           = "layers"
	KeyWinAmount        = "win_amount"
	KeyCredits          = "credits"
	KeyMysteryGifts     = "mystery_gifts"
	KeyFreeSpins        = "free_spins"
	KeySpinCount        = "spin_count"
	KeySymbol           = "symbol"
	KeyPositions        = "positions"
	KeyLine             = "line"
	KeyCount            = "count"
)

// Node 結果樹的一個節點。
//
// parent 只用來往上查值，不擁有 parent；subs / spins / byLayer 第一次存取時建立，之後不再變動。
type Node struct {
	doc    map[string]any
	parent *Node
	layer  int

	typeDone bool
	typ      Type

	// 子結果與各 layer 子結果一起建立
	subsDone bool
	subs     []*Node
	byLayer  map[int][]*Node

	spinsDone bool
	spins     []*Node

	// bonus 分類狀態
	cls classState
}

// New 包一段文件，不做任何解析
func New(doc map[string]any) *Node {
	if doc == nil {
		doc = map[string]any{}
	}
	n := &Node{doc: doc, layer: -1}
	if l, ok := convert[int](doc[KeyLayer]); ok {
		n.layer = l
	}
	return n
}

// NewChild 建立一個查不到值時會往 parent 查的節點
func NewChild(doc map[string]any, parent *Node) *Node {
	n := New(doc)
	n.parent = parent
	return n
}

// Parent 回傳 parent，根節點為 nil
func (n *Node) Parent() *Node { return n.parent }

// Doc 回傳原始文件（唯讀使用）
func (n *Node) Doc() map[string]any { return n.doc }

// Kind 原始的 outcome_type 字串
func (n *Node) Kind() string {
	return GetLocal(n, KeyOutcomeType, "")
}

// Type 結果類型，第一次呼叫後固定
func (n *Node) Type() Type {
	if !n.typeDone {
		n.typ = ParseType(n.Kind())
		n.typeDone = true
	}
	return n.typ
}

// Layer 多盤面遊戲的盤面索引，非多盤面為 -1
func (n *Node) Layer() int { return n.layer }

// WinAmount 本節點的贏分。credit bonus 會以 credits * 倍率覆寫。
func (n *Node) WinAmount() int64 {
	if n.cls.winSet {
		return n.cls.winAmount
	}
	return GetLocal[int64](n, KeyWinAmount, 0)
}

// OwnWin 本節點自身的贏分；文件沒有 win_amount 且不是 credit bonus 時 ok 為 false
func (n *Node) OwnWin() (int64, bool) {
	if _, ok := n.doc[KeyWinAmount]; ok || n.cls.winSet {
		return n.WinAmount(), true
	}
	return 0, false
}

// SubWin 加總非 bonus 的子結果贏分
func (n *Node) SubWin() int64 {
	var sum int64
	for _, s := range n.SubOutcomes() {
		if s.BonusGame() != "" {
			continue
		}
		sum += s.WinAmount()
	}
	return sum
}

// TotalWin 本節點的 base 贏分。
// 節點自己宣告 bonus 時，自身的 win_amount 屬於 bonus，只計子結果；bonus 的贏分由 bonus 流程另計。
func (n *Node) TotalWin() int64 {
	if n.BonusGame() == "" {
		if _, ok := n.doc[KeyWinAmount]; ok {
			return n.WinAmount()
		}
	}
	return n.SubWin()
}

// BonusGame 本節點宣告的 bonus 名稱；bonus 欄位若是字串也視為名稱
func (n *Node) BonusGame() string {
	if name := GetLocal(n, KeyBonusGame, ""); name != "" {
		return name
	}
	return GetLocal(n, KeyBonus, "")
}

// reevaluations 本節點自身的 reevaluations 陣列，只取 map 元素
func (n *Node) reevaluations() []map[string]any {
	return mapsOf(GetLocal[[]any](n, KeyReevaluations, nil))
}

func mapsOf(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
