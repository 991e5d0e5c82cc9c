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

const (
	typeSymbolShuffle    = "symbol_shuffle"
	typeBonusAccumulate  = "bonus_symbol_accumulation"
	typeGameGroup        = "game_group"
	typeMysteryGift      = "mystery_gift"
	typeStickySymbols    = "sticky_symbols"
	typeSymbolReplace    = "symbol_replacement"
	outcomeTypeBonusGame = "bonus_game"
)

// ClassifyReevaluation 判定一筆 reevaluation 的種類。
//
// 判定順序：symbol_shuffle 一律排除 → 有非空 reevaluated_stops 即為 spin →
// bonus 載體 → 多盤面包裝 → 神秘禮物 → 黏性圖標 → 圖標替換。
func ClassifyReevaluation(entry map[string]any) ReevalKind {
	tag, _ := entry[KeyType].(string)
	if tag == typeSymbolShuffle {
		return ReevalShuffle
	}
	if hasStops(entry[KeyReevaluatedStops]) {
		return ReevalSpin
	}
	if ot, _ := entry[KeyOutcomeType].(string); ot == outcomeTypeBonusGame || tag == typeBonusAccumulate {
		return ReevalBonusCarrier
	}
	if _, ok := entry[KeyLayers].([]any); ok || tag == typeGameGroup {
		return ReevalLayerGroup
	}
	if tag == typeMysteryGift {
		return ReevalMysteryGift
	}
	if _, ok := entry[KeyNewStickies]; ok || tag == typeStickySymbols {
		return ReevalSticky
	}
	if _, ok := entry[KeyReplacement]; ok || tag == typeSymbolReplace {
		return ReevalReplacement
	}
	if _, ok := entry[KeyOverrideSymbols]; ok {
		return ReevalReplacement
	}
	return ReevalUnknown
}

// hasStops 非空陣列才算有停輪資料
func hasStops(v any) bool {
	arr, ok := v.([]any)
	if ok {
		return len(arr) > 0
	}
	ints, ok := v.([]int)
	return ok && len(ints) > 0
}

// carrierDocs bonus 載體展開後的子結果文件。
// bonus_symbol_accumulation 取 bonus_games.outcomes；其他載體本身就是子結果。
func carrierDocs(entry map[string]any) []map[string]any {
	tag, _ := entry[KeyType].(string)
	if tag != typeBonusAccumulate {
		return []map[string]any{entry}
	}
	games, ok := entry[KeyBonusGames].(map[string]any)
	if !ok {
		return nil
	}
	arr, _ := games[KeyOutcomes].([]any)
	return mapsOf(arr)
}

// layerGroup 多盤面包裝中的一層
type layerGroup struct {
	layer   int
	entries []map[string]any
}

func layerGroups(entry map[string]any) []layerGroup {
	arr, _ := entry[KeyLayers].([]any)
	out := make([]layerGroup, 0, len(arr))
	for i, g := range mapsOf(arr) {
		l, ok := convert[int](g[KeyLayer])
		if !ok {
			l = i
		}
		re, _ := g[KeyReevaluations].([]any)
		out = append(out, layerGroup{layer: l, entries: mapsOf(re)})
	}
	return out
}

// SubOutcomes 子結果：outcomes 陣列依序，接著 reevaluations 中的 bonus 載體依序。
// 只建立一次；各 layer 的子結果同時建立。
func (n *Node) SubOutcomes() []*Node {
	n.buildSubs()
	return n.subs
}

// ReevaluationSubOutcomesByLayer 指定 layer 的子結果，與 SubOutcomes 一起快取
func (n *Node) ReevaluationSubOutcomesByLayer(layer int) []*Node {
	n.buildSubs()
	return n.byLayer[layer]
}

func (n *Node) buildSubs() {
	if n.subsDone {
		return
	}
	n.subsDone = true
	n.byLayer = map[int][]*Node{}

	for _, d := range mapsOf(GetLocal[[]any](n, KeyOutcomes, nil)) {
		n.subs = append(n.subs, New(d))
	}
	for _, e := range n.reevaluations() {
		switch ClassifyReevaluation(e) {
		case ReevalBonusCarrier:
			for _, d := range carrierDocs(e) {
				n.addSub(New(d))
			}
		case ReevalLayerGroup:
			for _, g := range layerGroups(e) {
				for _, le := range g.entries {
					if ClassifyReevaluation(le) != ReevalBonusCarrier {
						continue
					}
					for _, d := range carrierDocs(le) {
						c := New(d)
						if c.layer < 0 {
							c.layer = g.layer
						}
						n.addSub(c)
					}
				}
			}
		}
	}
}

func (n *Node) addSub(c *Node) {
	n.subs = append(n.subs, c)
	if c.layer >= 0 {
		n.byLayer[c.layer] = append(n.byLayer[c.layer], c)
	}
}

// ReevaluationSpins 需要重播的 reevaluation spin，依文件順序，parent 指向本節點
func (n *Node) ReevaluationSpins() []*Node {
	if n.spinsDone {
		return n.spins
	}
	n.spinsDone = true
	for _, e := range n.reevaluations() {
		switch ClassifyReevaluation(e) {
		case ReevalSpin:
			n.spins = append(n.spins, NewChild(e, n))
		case ReevalLayerGroup:
			for _, g := range layerGroups(e) {
				for _, le := range g.entries {
					if ClassifyReevaluation(le) != ReevalSpin {
						continue
					}
					c := NewChild(le, n)
					if c.layer < 0 {
						c.layer = g.layer
					}
					n.spins = append(n.spins, c)
				}
			}
		}
	}
	return n.spins
}

// Reevaluations 自身的每筆 reevaluation 與其分類，依文件順序
func (n *Node) Reevaluations() []ReevalEntry {
	es := n.reevaluations()
	out := make([]ReevalEntry, len(es))
	for i, e := range es {
		out[i] = ReevalEntry{Kind: ClassifyReevaluation(e), Doc: e}
	}
	return out
}

// ReevalEntry 一筆 reevaluation
type ReevalEntry struct {
	Kind ReevalKind
	Doc  map[string]any
}
