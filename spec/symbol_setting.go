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
	"strings"

	"github.com/zintix-labs/spinflow/errs"
)

// SymbolType 圖標類別，依名稱字首判定
type SymbolType int

const (
	SymbolTypeNone SymbolType = iota
	SymbolTypeSpecial
	SymbolTypeScatter
	SymbolTypeWild
	SymbolTypeHigh
	SymbolTypeLow
)

var symbolPrefix = map[byte]SymbolType{
	'Z': SymbolTypeNone,
	'S': SymbolTypeSpecial,
	'C': SymbolTypeScatter,
	'W': SymbolTypeWild,
	'H': SymbolTypeHigh,
	'L': SymbolTypeLow,
}

// SymbolSetting 名稱 <-> 編號對照。
// 編號 0 保留給空格，設定檔中第一個名稱編號為 1。
type SymbolSetting struct {
	Names    []string `yaml:"names" json:"names"`
	ids      map[string]int16
	types    []SymbolType
	initFlag bool
}

// Init 檢查設定並建立對照表
func (ss *SymbolSetting) Init() error {
	if ss.initFlag {
		return nil
	}
	if len(ss.Names) == 0 {
		return errs.NewFatal("symbols.names is empty")
	}
	ss.ids = make(map[string]int16, len(ss.Names))
	ss.types = make([]SymbolType, len(ss.Names)+1)
	for i, name := range ss.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			return errs.Fatalf("symbols.names[%d] is empty", i)
		}
		if _, dup := ss.ids[name]; dup {
			return errs.Fatalf("duplicate symbol %s", name)
		}
		t, ok := symbolPrefix[name[0]]
		if !ok {
			return errs.Fatalf("symbol %s has unknown prefix", name)
		}
		ss.ids[name] = int16(i + 1)
		ss.types[i+1] = t
	}
	ss.initFlag = true
	return nil
}

// ID 名稱轉編號，未知名稱回傳 (0,false)
func (ss *SymbolSetting) ID(name string) (int16, bool) {
	id, ok := ss.ids[name]
	return id, ok
}

// Name 編號轉名稱，0 或越界回傳空字串
func (ss *SymbolSetting) Name(id int16) string {
	if id <= 0 || int(id) > len(ss.Names) {
		return ""
	}
	return ss.Names[id-1]
}

func (ss *SymbolSetting) Type(id int16) SymbolType {
	if id <= 0 || int(id) >= len(ss.types) {
		return SymbolTypeNone
	}
	return ss.types[id]
}

func (ss *SymbolSetting) IsWild(id int16) bool { return ss.Type(id) == SymbolTypeWild }

// IsPaying High/Low/Scatter 才會構成得分
func (ss *SymbolSetting) IsPaying(id int16) bool {
	switch ss.Type(id) {
	case SymbolTypeHigh, SymbolTypeLow, SymbolTypeScatter:
		return true
	}
	return false
}
