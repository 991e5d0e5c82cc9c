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

package source

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/sampler"
	"github.com/zintix-labs/spinflow/sdk/session"
)

// Stream 依序回傳固定的結果；Loop 為 true 時用完從頭開始，否則回傳錯誤
type Stream struct {
	mu   sync.Mutex
	docs []map[string]any
	next int
	Loop bool
}

var _ session.ResultSource = (*Stream)(nil)

func NewStream(docs []map[string]any, loop bool) *Stream {
	return &Stream{docs: docs, Loop: loop}
}

func (s *Stream) Fetch(ctx context.Context, req session.SpinRequest) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.docs) {
		if !s.Loop || len(s.docs) == 0 {
			return nil, errs.NewWarn("outcome stream exhausted")
		}
		s.next = 0
	}
	d := s.docs[s.next]
	s.next++
	return d, nil
}

// Entry 結果池中的一份結果
type Entry struct {
	Key     string         `json:"key"`
	Weight  int            `json:"weight"`
	Outcome map[string]any `json:"outcome"`
}

// Pool 依權重抽出結果。同一個 seed 產生同一串結果。
type Pool struct {
	mu      sync.Mutex
	entries []Entry
	table   *sampler.AliasTable
	rng     *rand.Rand
	byKey   map[string]int
	picks   []int
}

var (
	_ session.ResultSource = (*Pool)(nil)
	_ session.ForcedSource = (*Pool)(nil)
)

func NewPool(entries []Entry, seed int64) (*Pool, error) {
	if len(entries) == 0 {
		return nil, errs.Config("pool has no entries")
	}
	weights := make([]int, len(entries))
	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Outcome == nil {
			return nil, errs.Config("pool entry %d (%s) has no outcome", i, e.Key)
		}
		weights[i] = e.Weight
		if e.Key != "" {
			if _, dup := byKey[e.Key]; dup {
				return nil, errs.Config("duplicate pool key %s", e.Key)
			}
			byKey[e.Key] = i
		}
	}
	table, err := sampler.BuildAliasTable(weights)
	if err != nil {
		return nil, errs.Wrap(err, "pool weights")
	}
	if table.Total == 0 {
		return nil, errs.Config("pool weights sum to zero")
	}
	return &Pool{
		entries: entries,
		table:   table,
		rng:     sampler.NewRand(seed),
		byKey:   byKey,
		picks:   make([]int, len(entries)),
	}, nil
}

// NewPoolFromFile 以檔案內容建立結果池，seed 非 0 時覆寫檔案中的 seed
func NewPoolFromFile(pf *PoolFile, seed int64) (*Pool, error) {
	if seed == 0 {
		seed = pf.Seed
	}
	return NewPool(pf.Entries, seed)
}

func (p *Pool) Fetch(ctx context.Context, req session.SpinRequest) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.table.Pick(p.rng)
	p.picks[i]++
	return p.entries[i].Outcome, nil
}

// Forced 依 key 取出指定結果
func (p *Pool) Forced(ctx context.Context, key string) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.byKey[key]
	if !ok {
		return nil, errs.Config("forced outcome %q not found", key)
	}
	return p.entries[i].Outcome, nil
}

// Keys 可指定的 key
func (p *Pool) Keys() []string {
	out := make([]string, 0, len(p.byKey))
	for _, e := range p.entries {
		if e.Key != "" {
			out = append(out, e.Key)
		}
	}
	return out
}

// Picks 每份結果被抽中的次數
func (p *Pool) Picks() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.picks...)
}
