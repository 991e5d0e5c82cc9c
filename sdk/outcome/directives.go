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

// Position 盤面上的一格
type Position struct {
	Reel  int `json:"reel"`
	Row   int `json:"row"`
	Layer int `json:"layer"`
}

// SymbolOverride override_symbols 的一筆。欄位不齊時 Valid=false，但仍保留在清單中。
type SymbolOverride struct {
	Position
	ReelStripIndex int      `json:"reel_strip_index"`
	From           string   `json:"from_symbol"`
	To             string   `json:"to_symbol"`
	Valid          bool     `json:"valid"`
	Missing        []string `json:"missing,omitempty"`
}

// Sticky 黏性圖標
type Sticky struct {
	Position
	Symbol string `json:"symbol"`
}

// AnticipationTrigger 觸發期待動畫的軸
type AnticipationTrigger struct {
	Reel   int    `json:"reel"`
	Layer  int    `json:"layer"`
	Symbol string `json:"symbol"`
}

// Mutation 變形指令，內容由遊戲模組解讀
type Mutation struct {
	Type string
	Doc  map[string]any
}

var overrideRequired = [...]string{"reel", "position", "reel_strip_index", "from_symbol", "to_symbol"}

// ReelStops 本次 spin 的停輪位置，reevaluation spin 會沿 parent 取得
func (n *Node) ReelStops() []int {
	return Get[[]int](n, KeyReelStops, nil)
}

// ReevaluatedStops reevaluation spin 自身的停輪位置
func (n *Node) ReevaluatedStops() []int {
	return GetLocal[[]int](n, KeyReevaluatedStops, nil)
}

// SpinStops 有 reevaluated_stops 用之，否則用 reel_stops
func (n *Node) SpinStops() []int {
	if s := n.ReevaluatedStops(); len(s) > 0 {
		return s
	}
	return n.ReelStops()
}

// ReelSetName 使用的輪帶組，可繼承
func (n *Node) ReelSetName() string {
	return Get(n, KeyReelSet, "")
}

// OverrideSymbols 解析 override_symbols，欄位缺漏的項目標記為無效但不丟棄
func (n *Node) OverrideSymbols() []SymbolOverride {
	arr := GetLocal[[]any](n, KeyOverrideSymbols, nil)
	out := make([]SymbolOverride, 0, len(arr))
	for _, v := range arr {
		m, _ := v.(map[string]any)
		o := SymbolOverride{Valid: true}
		for _, k := range overrideRequired {
			if _, ok := m[k]; !ok {
				o.Valid = false
				o.Missing = append(o.Missing, k)
			}
		}
		o.Reel, _ = convert[int](m["reel"])
		o.Row, _ = convert[int](m["position"])
		o.Layer, _ = convert[int](m[KeyLayer])
		o.ReelStripIndex, _ = convert[int](m["reel_strip_index"])
		o.From, _ = m["from_symbol"].(string)
		o.To, _ = m["to_symbol"].(string)
		out = append(out, o)
	}
	return out
}

// NewStickies 本節點新增的黏性圖標
func (n *Node) NewStickies() []Sticky {
	arr := GetLocal[[]any](n, KeyNewStickies, nil)
	out := make([]Sticky, 0, len(arr))
	for _, m := range mapsOf(arr) {
		s := Sticky{}
		s.Reel, _ = convert[int](m["reel"])
		if r, ok := convert[int](m["position"]); ok {
			s.Row = r
		} else {
			s.Row, _ = convert[int](m["row"])
		}
		s.Layer, _ = convert[int](m[KeyLayer])
		s.Symbol, _ = m["symbol"].(string)
		out = append(out, s)
	}
	return out
}

// LinkedReels 連動軸組。接受 [[0,1],[3,4]] 或 [{"reels":[0,1]}]
func (n *Node) LinkedReels() [][]int {
	arr := Get[[]any](n, KeyLinkedReels, nil)
	out := make([][]int, 0, len(arr))
	for _, v := range arr {
		if ints, ok := toInts(v); ok {
			out = append(out, ints)
			continue
		}
		if m, ok := v.(map[string]any); ok {
			if ints, ok := toInts(m["reels"]); ok {
				out = append(out, ints)
			}
		}
	}
	return out
}

// AnticipationTriggers anticipation_info.triggers。元素可為軸編號或 {reel, layer, symbol}
func (n *Node) AnticipationTriggers() []AnticipationTrigger {
	arr := GetPath[[]any](n, KeyAnticipationInfo+"."+KeyTriggers, nil)
	out := make([]AnticipationTrigger, 0, len(arr))
	for _, v := range arr {
		if reel, ok := toInt64(v); ok {
			out = append(out, AnticipationTrigger{Reel: int(reel)})
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		t := AnticipationTrigger{}
		t.Reel, _ = convert[int](m["reel"])
		t.Layer, _ = convert[int](m[KeyLayer])
		t.Symbol, _ = m["symbol"].(string)
		out = append(out, t)
	}
	return out
}

// StaticReels 本次不轉動的軸
func (n *Node) StaticReels() []int {
	return GetLocal[[]int](n, KeyStaticReels, nil)
}

// Mutations mutations 陣列，加上 reevaluations 中的 symbol_shuffle
func (n *Node) Mutations() []Mutation {
	var out []Mutation
	for _, m := range mapsOf(GetLocal[[]any](n, KeyMutations, nil)) {
		t, _ := m[KeyType].(string)
		out = append(out, Mutation{Type: t, Doc: m})
	}
	for _, e := range n.reevaluations() {
		if ClassifyReevaluation(e) == ReevalShuffle {
			out = append(out, Mutation{Type: typeSymbolShuffle, Doc: e})
		}
	}
	return out
}

// ReplacementSymbols 圖標替換表 from → to
func (n *Node) ReplacementSymbols() map[string]string {
	raw := GetLocal[map[string]any](n, KeyReplacement, nil)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
