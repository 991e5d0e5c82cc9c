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

package stats_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/spinflow/spec"
	"github.com/zintix-labs/spinflow/stats"
)

// buildReport 以固定押注與每局贏分組出報表，全部當作 base game 贏分
func buildReport(wager int64, wins []int64) *stats.SessionReport {
	r := stats.NewSessionReport("TestGame", spec.GID(0), wager)
	for _, w := range wins {
		r.Summary.Spins++
		r.Summary.TotalWager += wager
		r.Summary.TotalWin += w
		r.Summary.BaseWin += w
		if w == 0 {
			r.Summary.NoWinSpins++
		}
		r.Dist.WinCollect[stats.BucketIndex(w, wager)]++
		r.Mult.Samples = append(r.Mult.Samples, float64(w)/float64(wager))
	}
	r.Done()
	return r
}

func TestBucketIndex(t *testing.T) {
	cases := []struct {
		win, wager int64
		want       string
	}{
		{0, 10, "[0,0]"},
		{5, 10, "(0,1)"},
		{10, 10, "[1,2)"},
		{19, 10, "[1,2)"},
		{20, 10, "[2,5)"},
		{999, 10, "[50,100)"},
		{100000, 10, "[10000,+inf)"},
		{20000, 10, "[2000,10000)"},
	}
	labels := stats.BucketLabels()
	for _, c := range cases {
		if got := labels[stats.BucketIndex(c.win, c.wager)]; got != c.want {
			t.Fatalf("win %d wager %d: got %s want %s", c.win, c.wager, got, c.want)
		}
	}
}

func TestReportCoreMetrics(t *testing.T) {
	var wager int64 = 40
	rep := buildReport(wager, []int64{wager, 2 * wager})

	wantRTP := 3.0 / 2.0
	if got := rep.Rtp(); math.Abs(got-wantRTP) > 1e-12 {
		t.Fatalf("RTP got %.12f want %.12f", got, wantRTP)
	}
	// 樣本 {1, 2}：平均 1.5，樣本標準差 sqrt(0.5)
	wantStd := math.Sqrt(0.5)
	if got := rep.Std(); math.Abs(got-wantStd) > 1e-12 {
		t.Fatalf("Std got %.12f want %.12f", got, wantStd)
	}
	if got := rep.Cv(); math.Abs(got-wantStd/wantRTP) > 1e-12 {
		t.Fatalf("CV got %.12f", got)
	}
	if rep.Mult.Max != 2 || math.Abs(rep.Mult.Mean-1.5) > 1e-12 {
		t.Fatalf("mult got max %.2f mean %.2f", rep.Mult.Max, rep.Mult.Mean)
	}
	if rep.Summary.HitRate != 1 {
		t.Fatalf("hit rate got %.2f want 1", rep.Summary.HitRate)
	}
	ci := rep.Summary.RtpCI
	if ci.Lo > wantRTP || ci.Hi < wantRTP {
		t.Fatalf("RTP CI %v does not contain %.2f", ci, wantRTP)
	}

	total := 0
	for _, c := range rep.Dist.WinCollect {
		total += c
	}
	if total != rep.Summary.Spins {
		t.Fatalf("distribution total %d != spins %d", total, rep.Summary.Spins)
	}

	rep.Done()
	if rep.Rtp() != wantRTP {
		t.Fatalf("RTP changed after second Done")
	}
}

func TestEmptyReport(t *testing.T) {
	rep := buildReport(10, nil)
	if rep.Rtp() != 0 || rep.Std() != 0 || rep.Cv() != 0 {
		t.Fatalf("empty report should be all zero")
	}
}

func TestRenderers(t *testing.T) {
	rep := buildReport(10, []int64{0, 0, 30, 5})
	rep.Bonus.Count["gifting"] = 1
	rep.Bonus.Win["gifting"] = 30
	for _, f := range []string{"json", "yaml", "table"} {
		r, ok := stats.RenderFor(f)
		if !ok {
			t.Fatalf("no render for %s", f)
		}
		var buf bytes.Buffer
		if err := rep.WriteWith(&buf, r); err != nil {
			t.Fatalf("%s render: %v", f, err)
		}
		if !strings.Contains(buf.String(), "TestGame") {
			t.Fatalf("%s output missing game name:\n%s", f, buf.String())
		}
	}
	if _, ok := stats.RenderFor("xml"); ok {
		t.Fatalf("xml should not be supported")
	}
}

func TestEstimatePlayers(t *testing.T) {
	// 100 位玩家，RTP 由 0.00 到 0.99
	reps := make([]*stats.SessionReport, 0, 100)
	for i := range 100 {
		r := buildReport(100, []int64{int64(i)})
		if i < 30 {
			r.Player.Bust = true
		}
		if i%4 == 0 {
			r.Summary.Trigger = 1
		}
		reps = append(reps, r)
	}
	est := stats.EstimatePlayers(reps)
	if math.Abs(est.Median.Hat-0.5) > 0.05 {
		t.Fatalf("median RTP expected ~0.5, got %.3f", est.Median.Hat)
	}
	if math.Abs(est.P90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 RTP expected ~0.9, got %.3f", est.P90.Hat)
	}
	if est.Bust.Hat != 0.3 {
		t.Fatalf("bust rate got %.2f want 0.30", est.Bust.Hat)
	}
	if est.Triggered.Hat != 0.25 {
		t.Fatalf("triggered rate got %.2f want 0.25", est.Triggered.Hat)
	}
	if est.Bust.CI.Lo >= 0.3 || est.Bust.CI.Hi <= 0.3 {
		t.Fatalf("bust CI %v does not contain 0.30", est.Bust.CI)
	}
	if !strings.Contains(est.String(), "Median RTP") {
		t.Fatalf("estimate table missing rows")
	}
}
