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

package stats

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// PlayerEstimate 多個 session（每個視為一位玩家）的體驗評估
type PlayerEstimate struct {
	Players   int
	Median    PointStat // 玩家 RTP 中位數
	P10       PointStat // 最差 10% 玩家的 RTP
	P90       PointStat
	BelowHalf PointStat // RTP <= 50% 的玩家比例
	Triggered PointStat // 至少觸發一次 bonus 的玩家比例
	BigWin    PointStat // 至少看過一次 big win 的玩家比例
	Bust      PointStat
}

// PointStat 點估計與 95% 信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// EstimatePlayers 以每個 session 的報表估計玩家體驗分布
func EstimatePlayers(reps []*SessionReport) *PlayerEstimate {
	n := len(reps)
	out := &PlayerEstimate{Players: n}
	if n == 0 {
		return out
	}
	rtp := make([]float64, n)
	var half, trig, big, bust int
	for i, r := range reps {
		rtp[i] = r.Rtp()
		if rtp[i] <= 0.5 {
			half++
		}
		if r.Summary.Trigger > 0 {
			trig++
		}
		if r.Summary.BigWins > 0 {
			big++
		}
		if r.Player != nil && r.Player.Bust {
			bust++
		}
	}
	slices.Sort(rtp)

	out.Median = quantileStat(rtp, 0.5)
	out.P10 = quantileStat(rtp, 0.1)
	out.P90 = quantileStat(rtp, 0.9)
	out.BelowHalf = proportionStat(half, n)
	out.Triggered = proportionStat(trig, n)
	out.BigWin = proportionStat(big, n)
	out.Bust = proportionStat(bust, n)
	return out
}

func (est *PlayerEstimate) String() string {
	keys := []string{"Players", "Median RTP", "P10 RTP", "P90 RTP", "<=50% RTP", "Triggered", "Saw Big Win", "Bust"}
	msg := map[string]string{
		"Players":     fmt.Sprintf("%d", est.Players),
		"Median RTP":  fmtPoint(est.Median),
		"P10 RTP":     fmtPoint(est.P10),
		"P90 RTP":     fmtPoint(est.P90),
		"<=50% RTP":   fmtPoint(est.BelowHalf),
		"Triggered":   fmtPoint(est.Triggered),
		"Saw Big Win": fmtPoint(est.BigWin),
		"Bust":        fmtPoint(est.Bust),
	}
	return fmtTable("Player Experience", keys, msg)
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

func proportionStat(k, n int) PointStat {
	hat, ci := proportionCICP(k, n, 0.95)
	return PointStat{Hat: hat, CI: ci}
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)
	if k > 0 {
		ci.Lo = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	ci.Hi = 1
	if k < n {
		ci.Hi = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return
}

// quantileStat sorted 必須已排序。區間以 order statistic 的秩反推
func quantileStat(sorted []float64, q float64) PointStat {
	n := len(sorted)
	ps := PointStat{Hat: stat.Quantile(q, stat.Empirical, sorted, nil)}
	if n < 2 {
		ps.CI = CI{Lo: ps.Hat, Hi: ps.Hat}
		return ps
	}
	k := min(max(int(q*float64(n)), 1), n-1)
	pLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(0.025)
	pHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(0.975)
	lo := min(max(int(pLo*float64(n)), 0), n-1)
	hi := min(max(int(pHi*float64(n))-1, 0), n-1)
	ps.CI = CI{Lo: sorted[lo], Hi: sorted[hi]}
	return ps
}

func fmtPoint(p PointStat) string {
	return fmt.Sprintf("%.2f%% [%.2f%%, %.2f%%]", p.Hat*100, p.CI.Lo*100, p.CI.Hi*100)
}
