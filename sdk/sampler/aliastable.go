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

// Package sampler 權重抽樣。fixture 來源用它從結果池中依權重挑一份結果。
package sampler

import (
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/zintix-labs/spinflow/errs"
)

// AliasTable Vose Alias Method 的整數版本，O(1) 抽樣。
//
//   - Prob: 每個槽位 scaling 後的機率 (weight * n)
//   - Aliases: 機率不足時改選的索引
//   - Total: 權重總和
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// BuildAliasTable 權重可為零，但不可為負也不可全為零
func BuildAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return &AliasTable{}, nil
	}
	total := uint64(0)
	for _, w := range weights {
		if w < 0 {
			return nil, errs.NewFatal("alias table: negative weight")
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			return nil, errs.NewFatal("alias table: total weight overflow")
		}
		total += uint64(w)
	}
	if total == 0 {
		return nil, errs.NewFatal("alias table: all weights are zero")
	}
	if hi, lo := bits.Mul64(total, uint64(n)); hi != 0 || lo > math.MaxInt64 {
		return nil, errs.NewFatal("alias table: weights too large")
	}

	t := int(total)
	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		prob[i] = w * n
		aliases[i] = i
		if prob[i] < t {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - t // 維持 sum(prob) = total * n
		if prob[l] < t {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: t}, nil
}

// Pick 空表回傳 -1
func (at *AliasTable) Pick(r *rand.Rand) int {
	if at.Size == 0 {
		return -1
	}
	idx := r.IntN(at.Size)
	if r.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}

// NewRand 以 seed 建立決定性的 PCG 亂數源
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
