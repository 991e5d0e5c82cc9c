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
	jsoniter "github.com/json-iterator/go"
	"github.com/zintix-labs/spinflow/errs"
)

// 數字以 Number 保留，避免大額 credits 在 float64 轉換時失真
var wire = jsoniter.Config{
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Parse 把一份結果文件解成根節點
func Parse(raw []byte) (*Node, error) {
	doc, err := ParseDoc(raw)
	if err != nil {
		return nil, err
	}
	return New(doc), nil
}

// ParseDoc 只解出文件
func ParseDoc(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := wire.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Wrap(errs.Protocol("malformed outcome document: %v", err), "outcome.Parse")
	}
	if doc == nil {
		return nil, errs.Protocol("empty outcome document")
	}
	return doc, nil
}

// ParseStream 解一個 JSON 陣列，每個元素為一份結果文件
func ParseStream(raw []byte) ([]map[string]any, error) {
	var arr []map[string]any
	if err := wire.Unmarshal(raw, &arr); err != nil {
		return nil, errs.Protocol("malformed outcome stream: %v", err)
	}
	return arr, nil
}

// Marshal 把文件編回 JSON，給 harness 回傳用
func Marshal(doc map[string]any) ([]byte, error) {
	return wire.Marshal(doc)
}

// Unmarshal 以與結果文件相同的規則解任意 JSON，fixture 檔使用
func Unmarshal(raw []byte, v any) error {
	if err := wire.Unmarshal(raw, v); err != nil {
		return errs.Protocol("malformed document: %v", err)
	}
	return nil
}
