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

// BonusMeta 單一 bonus 的顯示資訊
type BonusMeta struct {
	Display  string `yaml:"display"  json:"display"`
	Giftable bool   `yaml:"giftable" json:"giftable"`
	Paytable string `yaml:"paytable" json:"paytable"`
}

// BonusCatalog 五類 bonus 名稱表與搜尋時要略過的名稱
type BonusCatalog struct {
	Portal    map[string]BonusMeta `yaml:"portal"    json:"portal"`
	Scatter   map[string]BonusMeta `yaml:"scatter"   json:"scatter"`
	Gifting   map[string]BonusMeta `yaml:"gifting"   json:"gifting"`
	Credit    map[string]BonusMeta `yaml:"credit"    json:"credit"`
	Challenge map[string]BonusMeta `yaml:"challenge" json:"challenge"`
	Excluded  []string             `yaml:"excluded"  json:"excluded"`
}

func (bc *BonusCatalog) init() {
	for _, m := range []*map[string]BonusMeta{&bc.Portal, &bc.Scatter, &bc.Gifting, &bc.Credit, &bc.Challenge} {
		if *m == nil {
			*m = map[string]BonusMeta{}
		}
	}
}
