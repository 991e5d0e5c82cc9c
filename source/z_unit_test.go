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

package source_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/source"
)

const streamJSON = `[{"total_win": 0}, {"total_win": 20}, {"total_win": 5}]`

const poolJSON = `{
  "seed": 42,
  "entries": [
    {"key": "lose", "weight": 7, "outcome": {"total_win": 0}},
    {"key": "small", "weight": 2, "outcome": {"total_win": 10}},
    {"key": "free", "weight": 1, "outcome": {"total_win": 0, "bonus": {"name": "freespin_x"}}}
  ]
}`

func win(t *testing.T, doc map[string]any) string {
	t.Helper()
	return docString(doc["total_win"])
}

func docString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

func TestStreamOrderAndExhaustion(t *testing.T) {
	docs, err := source.LoadStream(fstest.MapFS{"s.json": {Data: []byte(streamJSON)}}, "s.json")
	if err != nil {
		t.Fatalf("load stream: %v", err)
	}
	s := source.NewStream(docs, false)
	ctx := context.Background()
	want := []string{"0", "20", "5"}
	for i, w := range want {
		d, err := s.Fetch(ctx, session.SpinRequest{})
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if got := win(t, d); got != w {
			t.Fatalf("fetch %d: got %s want %s", i, got, w)
		}
	}
	if _, err := s.Fetch(ctx, session.SpinRequest{}); err == nil {
		t.Fatalf("expected exhausted stream error")
	}
}

func TestStreamLoop(t *testing.T) {
	s := source.NewStream([]map[string]any{{"a": 1}, {"a": 2}}, true)
	ctx := context.Background()
	for i := range 5 {
		d, err := s.Fetch(ctx, session.SpinRequest{})
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if d["a"] != i%2+1 {
			t.Fatalf("fetch %d: got %v", i, d["a"])
		}
	}
}

func TestStreamCanceledContext(t *testing.T) {
	s := source.NewStream([]map[string]any{{}}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Fetch(ctx, session.SpinRequest{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestZstdFixture(t *testing.T) {
	packed, err := source.Compress([]byte(streamJSON))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	docs, err := source.LoadStream(fstest.MapFS{"s.json.zst": {Data: packed}}, "s.json.zst")
	if err != nil {
		t.Fatalf("load zst stream: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs want 3", len(docs))
	}
	if got := win(t, docs[1]); got != "20" {
		t.Fatalf("doc 1 total_win got %s", got)
	}
}

func TestMissingFixture(t *testing.T) {
	if _, err := source.LoadStream(fstest.MapFS{}, "nope.json"); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := source.LoadPool(fstest.MapFS{"p.json": {Data: []byte(`{"entries": []}`)}}, "p.json"); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("empty pool: got %v want config fault", err)
	}
}

func loadPool(t *testing.T, seed int64) *source.Pool {
	t.Helper()
	pf, err := source.LoadPool(fstest.MapFS{"p.json": {Data: []byte(poolJSON)}}, "p.json")
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	p, err := source.NewPoolFromFile(pf, seed)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return p
}

func TestPoolDeterministic(t *testing.T) {
	a, b := loadPool(t, 0), loadPool(t, 0)
	ctx := context.Background()
	for i := range 200 {
		da, _ := a.Fetch(ctx, session.SpinRequest{})
		db, _ := b.Fetch(ctx, session.SpinRequest{})
		if win(t, da) != win(t, db) || (da["bonus"] == nil) != (db["bonus"] == nil) {
			t.Fatalf("pick %d differs between equal seeds", i)
		}
	}
	picks := a.Picks()
	total := picks[0] + picks[1] + picks[2]
	if total != 200 {
		t.Fatalf("picks total %d want 200", total)
	}
	if picks[0] <= picks[2] {
		t.Fatalf("weight 7 entry picked %d times, weight 1 entry %d times", picks[0], picks[2])
	}
}

func TestPoolForced(t *testing.T) {
	p := loadPool(t, 1)
	d, err := p.Forced(context.Background(), "small")
	if err != nil {
		t.Fatalf("forced: %v", err)
	}
	if got := win(t, d); got != "10" {
		t.Fatalf("forced small total_win got %s", got)
	}
	if _, err := p.Forced(context.Background(), "jackpot"); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("unknown key: got %v want config fault", err)
	}
	if keys := p.Keys(); len(keys) != 3 || keys[0] != "lose" {
		t.Fatalf("keys got %v", keys)
	}
}

func TestPoolRejectsBadEntries(t *testing.T) {
	if _, err := source.NewPool(nil, 1); err == nil {
		t.Fatalf("expected error for empty pool")
	}
	if _, err := source.NewPool([]source.Entry{{Key: "a", Weight: 0, Outcome: map[string]any{}}}, 1); err == nil {
		t.Fatalf("expected error for zero weights")
	}
	dup := []source.Entry{
		{Key: "a", Weight: 1, Outcome: map[string]any{}},
		{Key: "a", Weight: 1, Outcome: map[string]any{}},
	}
	if _, err := source.NewPool(dup, 1); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("duplicate key: got %v", err)
	}
}
