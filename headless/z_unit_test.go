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

package headless_test

import (
	"context"
	"testing"
	"time"

	"github.com/zintix-labs/spinflow/catalog"
	"github.com/zintix-labs/spinflow/demo/demo_configs"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/headless"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/spec"
)

func linesGame(t *testing.T) *spec.GameSetting {
	t.Helper()
	c, err := catalog.New(demo_configs.FS)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := c.RegisterAll(); err != nil {
		t.Fatalf("register: %v", err)
	}
	gs, err := c.Game(1001)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	return gs
}

func TestSurfaceStopsAndStickies(t *testing.T) {
	gs := linesGame(t)
	s := headless.NewSurface(gs)
	ctx := context.Background()
	h1, _ := gs.Symbols.ID("H1")
	l1, _ := gs.Symbols.ID("L1")
	w1, _ := gs.Symbols.ID("W1")

	if err := s.StopReels(ctx, []int{0, 0, 0, 0, 0}, session.StopOrder{}, 0); err != nil {
		t.Fatalf("stop: %v", err)
	}
	g := s.Snapshot(0)
	if g.At(0, 0) != h1 || g.At(0, 1) != l1 {
		t.Fatalf("unexpected window %v", g.Cells)
	}

	pos := outcome.Position{Reel: 1, Row: 0}
	if err := s.ApplySymbol(pos, "W1", true); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.StopReels(ctx, []int{3, 5, 3, 3, 3}, session.StopOrder{}, 0); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Snapshot(0).At(1, 0) != w1 {
		t.Fatalf("sticky lost after stop")
	}
	s.ClearStickies()
	_ = s.StopReels(ctx, []int{0, 0, 0, 0, 0}, session.StopOrder{}, 0)
	if got := s.Snapshot(0).At(1, 0); got == w1 {
		t.Fatalf("sticky survived clear")
	}
	if s.Stops != 3 || len(s.Orders) != 3 {
		t.Fatalf("stops=%d orders=%d", s.Stops, len(s.Orders))
	}
}

func TestSurfaceOverrides(t *testing.T) {
	gs := linesGame(t)
	s := headless.NewSurface(gs)

	s.SetReplacements(map[string]string{"MYSTERY": "H2"})
	if err := s.ApplySymbol(outcome.Position{Reel: 0, Row: 2}, "MYSTERY", false); err != nil {
		t.Fatalf("replacement: %v", err)
	}
	h2, _ := gs.Symbols.ID("H2")
	if s.Snapshot(0).At(0, 2) != h2 {
		t.Fatalf("replacement not applied")
	}
	s.ClearOverrides()
	if err := s.ApplySymbol(outcome.Position{Reel: 0, Row: 2}, "MYSTERY", false); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("unknown symbol err=%v", err)
	}
	if err := s.ApplySymbol(outcome.Position{Reel: 9, Row: 0}, "H1", false); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("out of range err=%v", err)
	}
	if err := s.SetReelSet("nope"); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("unknown reel set err=%v", err)
	}
	if err := s.SetReelSet("free"); err != nil || s.ReelSetName() != "free" {
		t.Fatalf("set reel set: %v", err)
	}
}

func TestSurfaceAnimations(t *testing.T) {
	s := headless.NewSurface(linesGame(t))
	s.Animations = 2
	if s.AnimationCount() != 2 || s.AnimationCount() != 1 || s.AnimationCount() != 0 {
		t.Fatalf("animation count should drain")
	}
}

func TestWallet(t *testing.T) {
	ctx := context.Background()
	w := headless.NewWallet(100)
	if err := w.Debit(ctx, 30); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := w.Credit(ctx, 50); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := w.Debit(ctx, 500); errs.KindOf(err) != errs.KindPlayer {
		t.Fatalf("overdraft err=%v", err)
	}
	if err := w.Credit(ctx, -1); err == nil {
		t.Fatalf("negative credit accepted")
	}
	bal, _ := w.Balance(ctx)
	d, c := w.Totals()
	if bal != 120 || d != 30 || c != 50 {
		t.Fatalf("bal=%d debited=%d credited=%d", bal, d, c)
	}
}

func TestClock(t *testing.T) {
	c := headless.Clock{Cutoff: time.Second}
	select {
	case <-c.After(10 * time.Millisecond):
	default:
		t.Fatalf("short wait should fire immediately")
	}
	if c.After(2*time.Second) != nil {
		t.Fatalf("wait at cutoff should never fire")
	}
	select {
	case <-headless.Clock{}.After(time.Hour):
	default:
		t.Fatalf("zero cutoff fires everything")
	}
}

func TestDisplayAndRefresher(t *testing.T) {
	d := &headless.Display{}
	d.RollupTick(5)
	_ = d.BigWin(context.Background(), 300)
	d.OutOfCoins()
	d.ResetSoundOverrides()
	if len(d.Ticks) != 1 || len(d.BigWins) != 1 || d.Broke != 1 || d.SoundReset != 1 {
		t.Fatalf("display=%+v", d)
	}
	r := &headless.Refresher{}
	r.ForceRefresh(errs.Protocol("timeout"))
	if r.Count != 1 || errs.KindOf(r.Reasons[0]) != errs.KindProtocol {
		t.Fatalf("refresher=%+v", r)
	}
}
