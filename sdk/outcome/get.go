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
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// 注意：Go 的方法不能帶型別參數，所以取值 API 是自由函數而不是 Node 的方法。

// Get 取值：自身有 key 就轉型回傳，否則沿 parent 往上查，都沒有回傳 def。
// key 存在但型別轉不過去時回傳 def，不會再往上查。
func Get[T any](n *Node, key string, def T) T {
	return GetOpt(n, key, def, true)
}

// GetLocal 只查自身
func GetLocal[T any](n *Node, key string, def T) T {
	return GetOpt(n, key, def, false)
}

// GetOpt 同 Get，recursive=false 時不往 parent 查
func GetOpt[T any](n *Node, key string, def T, recursive bool) T {
	for cur := n; cur != nil; cur = cur.parent {
		if v, ok := cur.doc[key]; ok {
			if out, ok := convert[T](v); ok {
				return out
			}
			return def
		}
		if !recursive {
			break
		}
	}
	return def
}

// Has 自身或祖先是否有 key
func Has(n *Node, key string) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if _, ok := cur.doc[key]; ok {
			return true
		}
	}
	return false
}

// GetPath 以 "a.b.c" 取巢狀欄位，第一段套用 parent 查找，其後只在該 map 內查
func GetPath[T any](n *Node, path string, def T) T {
	parts := strings.Split(path, ".")
	head := Get[map[string]any](n, parts[0], nil)
	if len(parts) == 1 {
		return Get(n, parts[0], def)
	}
	var cur any = head
	for _, p := range parts[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		if cur, ok = m[p]; !ok {
			return def
		}
	}
	if out, ok := convert[T](cur); ok {
		return out
	}
	return def
}

// number 同時涵蓋 encoding/json 與 jsoniter 在 UseNumber 下產出的數字型別
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func convert[T any](v any) (T, bool) {
	var zero T
	if v == nil {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	var out any
	ok := false
	switch any(zero).(type) {
	case int:
		var i int64
		if i, ok = toInt64(v); ok {
			out = int(i)
		}
	case int64:
		out, ok = toInt64(v)
	case int16:
		i, good := toInt64(v)
		if good && i >= math.MinInt16 && i <= math.MaxInt16 {
			ok = true
			out = int16(i)
		}
	case float64:
		out, ok = toFloat64(v)
	case string:
		if x, isNum := v.(number); isNum {
			out, ok = x.String(), true
		}
	case bool:
		if s, isStr := v.(string); isStr {
			var b bool
			var err error
			if b, err = strconv.ParseBool(s); err == nil {
				out, ok = b, true
			}
		}
	case decimal.Decimal:
		out, ok = toDecimal(v)
	case []int:
		out, ok = toInts(v)
	case [][]int:
		arr, isArr := v.([]any)
		if isArr {
			res := make([][]int, 0, len(arr))
			ok = true
			for _, e := range arr {
				ints, good := toInts(e)
				if !good {
					ok = false
					break
				}
				res = append(res, ints)
			}
			out = res
		}
	case []string:
		arr, isArr := v.([]any)
		if isArr {
			res := make([]string, 0, len(arr))
			ok = true
			for _, e := range arr {
				s, good := e.(string)
				if !good {
					ok = false
					break
				}
				res = append(res, s)
			}
			out = res
		}
	}
	if !ok {
		return zero, false
	}
	t, ok := out.(T)
	return t, ok
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint:
		return int64(x), true
	case uint64:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case float32:
		return toInt64(float64(x))
	case number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return toInt64(f)
		}
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	}
	if i, ok := toInt64(v); ok {
		return decimal.NewFromInt(i), true
	}
	return decimal.Zero, false
}

func toInts(v any) ([]int, bool) {
	switch x := v.(type) {
	case []int:
		return x, true
	case []any:
		res := make([]int, 0, len(x))
		for _, e := range x {
			i, ok := toInt64(e)
			if !ok {
				return nil, false
			}
			res = append(res, int(i))
		}
		return res, true
	}
	return nil, false
}
