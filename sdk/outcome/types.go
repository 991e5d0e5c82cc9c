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

// Type 結果類型
type Type uint8

const (
	Undefined Type = iota
	LineWin
	ClusterWin
	ScatterWin
	BonusGame
	BonusSymbol
	SymbolCount
	Wheel
	Pickem
	ReelSetType
	ThresholdLadder
	SymbolCredits
)

var typeByTag = map[string]Type{
	"line_win":         LineWin,
	"cluster_win":      ClusterWin,
	"scatter_win":      ScatterWin,
	"bonus_game":       BonusGame,
	"bonus_symbol":     BonusSymbol,
	"symbol_count":     SymbolCount,
	"wheel":            Wheel,
	"pickem":           Pickem,
	"reel_set":         ReelSetType,
	"threshold_ladder": ThresholdLadder,
	"symbol_credits":   SymbolCredits,
}

var tagByType = func() map[Type]string {
	m := make(map[Type]string, len(typeByTag))
	for k, v := range typeByTag {
		m[v] = k
	}
	return m
}()

// ParseType 未知的 tag 一律回傳 Undefined
func ParseType(tag string) Type {
	return typeByTag[tag]
}

func (t Type) String() string {
	if s, ok := tagByType[t]; ok {
		return s
	}
	return "undefined"
}

// Category bonus 類別
type Category uint8

const (
	CategoryNone Category = iota
	Portal
	Scatter
	Gifting
	Credit
	Challenge
)

// searchOrder 分類時依序比對，先命中者勝出
var searchOrder = [...]Category{Portal, Scatter, Gifting, Credit, Challenge}

var categoryNames = map[Category]string{
	CategoryNone: "none",
	Portal:       "portal",
	Scatter:      "scatter",
	Gifting:      "gifting",
	Credit:       "credit",
	Challenge:    "challenge",
}

func (c Category) String() string {
	return categoryNames[c]
}

// ReevalKind reevaluation 項目的分類
type ReevalKind uint8

const (
	ReevalUnknown ReevalKind = iota
	// ReevalSpin 帶有自己的停輪位置，需重播一次小 spin
	ReevalSpin
	// ReevalBonusCarrier 帶有 bonus 的子結果
	ReevalBonusCarrier
	// ReevalSticky 黏性圖標指令
	ReevalSticky
	// ReevalReplacement 圖標替換指令
	ReevalReplacement
	// ReevalLayerGroup 多盤面包裝，內含各 layer 的 reevaluations
	ReevalLayerGroup
	// ReevalShuffle 純變形指令，不屬於 spin 也不屬於子結果
	ReevalShuffle
	// ReevalMysteryGift 神秘禮物
	ReevalMysteryGift
)

var reevalKindNames = [...]string{"unknown", "spin", "bonus_carrier", "sticky", "replacement", "layer_group", "shuffle", "mystery_gift"}

func (k ReevalKind) String() string {
	if int(k) < len(reevalKindNames) {
		return reevalKindNames[k]
	}
	return "unknown"
}
