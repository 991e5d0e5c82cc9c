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

import (
	"fmt"

	"github.com/zintix-labs/spinflow/errs"
)

// GID 遊戲編號
type GID uint

// GameSetting 一款遊戲在 client 端編排 spin 所需的全部設定。
type GameSetting struct {
	GameName     string             `yaml:"game_name"     json:"game_name"`
	GameID       GID                `yaml:"game_id"       json:"game_id"`
	BetUnits     []int              `yaml:"bet_units"     json:"bet_units"`
	Layout       LayoutSetting      `yaml:"layout"        json:"layout"`
	Symbols      SymbolSetting      `yaml:"symbols"       json:"symbols"`
	ReelSets     map[string]ReelSet `yaml:"reel_sets"     json:"reel_sets"`
	Paylines     [][]int            `yaml:"paylines"      json:"paylines"`
	BonusCatalog BonusCatalog       `yaml:"bonus_catalog" json:"bonus_catalog"`
	SessionRaw   map[string]any     `yaml:"session"       json:"session"`
	Session      SessionSetting     `yaml:"-"             json:"-"`
}

// init
func (gs *GameSetting) init() error {
	if err := gs.Layout.Init(); err != nil {
		return err
	}
	if err := gs.Symbols.Init(); err != nil {
		return err
	}
	for name, rs := range gs.ReelSets {
		if err := rs.init(&gs.Symbols, gs.Layout.Columns); err != nil {
			return errs.Wrap(err, fmt.Sprintf("reel_set %s", name))
		}
		gs.ReelSets[name] = rs
	}
	gs.BonusCatalog.init()
	if err := gs.decodeSession(); err != nil {
		return err
	}
	return gs.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (gs *GameSetting) valid() error {
	if gs.GameName == "" {
		return errs.NewFatal("empty game_name")
	}

	// valid BetUnits
	if len(gs.BetUnits) == 0 {
		return errs.NewFatal(fmt.Sprintf("game_name: %s err:empty bet_units", gs.GameName))
	}
	for _, b := range gs.BetUnits {
		if b < 1 {
			return errs.NewFatal(fmt.Sprintf("game_name: %s err:invalid bet unit", gs.GameName))
		}
	}

	// 連線長度需與軸數一致
	for i, line := range gs.Paylines {
		if len(line) != gs.Layout.Columns {
			return errs.NewFatal(fmt.Sprintf("game_name: %s err:payline %d has %d cells, want %d", gs.GameName, i, len(line), gs.Layout.Columns))
		}
		for _, r := range line {
			if r < 0 || r >= gs.Layout.Rows {
				return errs.NewFatal(fmt.Sprintf("game_name: %s err:payline %d row out of range", gs.GameName, i))
			}
		}
	}
	return gs.Session.valid()
}

// DefaultReelSet 結果未指定 reel_set 時使用的輪帶組
const DefaultReelSet = "base"

// ReelSet 依名稱取輪帶組，空字串為 DefaultReelSet；找不到時回傳設定故障。
func (gs *GameSetting) ReelSet(name string) (*ReelSet, error) {
	if name == "" {
		name = DefaultReelSet
	}
	rs, ok := gs.ReelSets[name]
	if !ok {
		return nil, errs.Config("game %s: reel set %q not found", gs.GameName, name)
	}
	return &rs, nil
}

// DefaultBet 最小押注單位
func (gs *GameSetting) DefaultBet() int {
	return gs.BetUnits[0]
}
