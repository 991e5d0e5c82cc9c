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

import "github.com/zintix-labs/spinflow/errs"

// LayoutSetting 描述盤面樣式的設定。
//
// Fields:
//   - Columns: 盤面軸數
//   - Rows: 盤面列數
//   - Layers: 多盤面遊戲的盤面數，單盤為 1
//   - Linked: 連動軸組，同組的軸同步起停
type LayoutSetting struct {
	Columns  int     `yaml:"columns"   json:"columns"`
	Rows     int     `yaml:"rows"      json:"rows"`
	Layers   int     `yaml:"layers"    json:"layers"`
	Linked   [][]int `yaml:"linked"    json:"linked"`
	GridSize int     `yaml:"-"         json:"-"`
	initFlag bool
}

// Init 檢查不合法的設定
func (ls *LayoutSetting) Init() error {
	if ls.initFlag {
		return nil
	}
	if ls.Columns <= 0 || ls.Rows <= 0 {
		return errs.Fatalf("invalid layout dimensions: cols=%d rows=%d", ls.Columns, ls.Rows)
	}
	if ls.Layers == 0 {
		ls.Layers = 1
	}
	if ls.Layers < 0 {
		return errs.NewFatal("layout.layers must be positive")
	}
	for _, group := range ls.Linked {
		for _, c := range group {
			if c < 0 || c >= ls.Columns {
				return errs.Fatalf("linked reel %d out of range", c)
			}
		}
	}
	ls.GridSize = ls.Rows * ls.Columns
	ls.initFlag = true
	return nil
}
