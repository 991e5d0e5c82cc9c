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

package spinflow_test

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/demo"
	"github.com/zintix-labs/spinflow/demo/demo_configs"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/source"
)

func newDemo(t *testing.T) *spinflow.Spinflow {
	t.Helper()
	sf, err := demo.New(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	return sf
}

func TestNewRequiresFreeze(t *testing.T) {
	sf, err := spinflow.New(spinflow.Configs(demo_configs.FS), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := sf.NewSession(demo.LinesGID, session.Env{}); err == nil {
		t.Fatalf("session before freeze accepted")
	}
	if _, err := sf.Summary(); err == nil {
		t.Fatalf("summary before freeze accepted")
	}
	if _, err := spinflow.New(nil, nil); err == nil {
		t.Fatalf("empty configs accepted")
	}
}

func TestHeadlessForcedSpin(t *testing.T) {
	sf := newDemo(t)
	pf, err := demo.Pool(demo.LinesGID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	pool, err := source.NewPoolFromFile(pf, 0)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	h, err := sf.NewHeadless(demo.LinesGID, pool, pool, 100)
	if err != nil {
		t.Fatalf("headless: %v", err)
	}
	rep, err := h.Session.SubmitForcedOutcome(context.Background(), "coins")
	if err != nil {
		t.Fatalf("forced: %v", err)
	}
	// credit bonus: 25 credits x multiplier 1
	if !rep.Complete || rep.Win != 25 {
		t.Fatalf("report=%+v", rep)
	}
	if bal, _ := h.Wallet.Balance(context.Background()); bal != 115 {
		t.Fatalf("balance=%d", bal)
	}
	if _, err := sf.NewHeadless(demo.LinesGID, nil, nil, 100); err == nil {
		t.Fatalf("nil source accepted")
	}
}

func TestReplayDeterministic(t *testing.T) {
	sf := newDemo(t)
	pf, err := demo.Pool(demo.TumbleGID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	cfg := spinflow.ReplayConfig{GameID: demo.TumbleGID, Spins: 300, Workers: 3, Seed: 99}
	a, err := sf.Replay(context.Background(), pf.Entries, cfg)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	b, err := sf.Replay(context.Background(), pf.Entries, cfg)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	sa, sb := a.Report.Summary, b.Report.Summary
	if sa.Spins+sa.Faults != 900 || sa.Spins != sb.Spins {
		t.Fatalf("spins=%d/%d faults=%d", sa.Spins, sb.Spins, sa.Faults)
	}
	if sa.TotalWin != sb.TotalWin || sa.Trigger != sb.Trigger {
		t.Fatalf("same seed diverged: %d/%d", sa.TotalWin, sb.TotalWin)
	}
	if sa.TotalWager != int64(sa.Spins)*20 {
		t.Fatalf("total wager=%d", sa.TotalWager)
	}
	if sa.BaseWin+sa.BonusWin != sa.TotalWin {
		t.Fatalf("base %d + bonus %d != total %d", sa.BaseWin, sa.BonusWin, sa.TotalWin)
	}
	if a.Players != nil {
		t.Fatalf("machine mode should not estimate players")
	}
}

func TestReplayPlayers(t *testing.T) {
	sf := newDemo(t)
	pf, err := demo.Pool(demo.LinesGID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	res, err := sf.Replay(context.Background(), pf.Entries, spinflow.ReplayConfig{
		GameID: demo.LinesGID, Spins: 200, Workers: 2, Players: 20, Balance: 200, Seed: 5,
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Players == nil || res.Players.Players != 20 {
		t.Fatalf("players=%+v", res.Players)
	}
	if res.Report.Summary.Spins > 20*200 {
		t.Fatalf("spins=%d", res.Report.Summary.Spins)
	}

	_, err = sf.Replay(context.Background(), pf.Entries, spinflow.ReplayConfig{GameID: demo.LinesGID, Players: 1, Balance: 1, Spins: 1})
	if err == nil {
		t.Fatalf("low balance err=%v", err)
	}
}

func TestReplayCanceled(t *testing.T) {
	sf := newDemo(t)
	pf, _ := demo.Pool(demo.LinesGID)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sf.Replay(ctx, pf.Entries, spinflow.ReplayConfig{GameID: demo.LinesGID, Spins: 10}); err == nil {
		t.Fatalf("canceled replay returned no error")
	}
}

// 版權宣告之後只空一行；server 的 middleware 與 sdk 一律帶宣告
func TestLicenseHeaderLayout(t *testing.T) {
	const tail = "// limitations under the License.\n"
	required := map[string]bool{
		"server/netsvr/middleware/logger.go": true,
		"sdk/session/steps.go":               true,
		"sdk/outcome/node.go":                true,
	}
	seen := 0
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), "_") {
			return filepath.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src := string(raw)
		i := strings.Index(src, tail)
		if !strings.HasPrefix(src, "// Copyright") || i < 0 {
			if required[filepath.ToSlash(path)] {
				t.Errorf("%s: missing license header", path)
			}
			return nil
		}
		seen++
		if rest := src[i+len(tail):]; !strings.HasPrefix(rest, "\n") || strings.HasPrefix(rest, "\n\n") {
			t.Errorf("%s: want exactly one blank line after the license header", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if seen == 0 {
		t.Fatalf("no headers found")
	}
}
