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

// Package stats 把一段 replay 的 spin 紀錄整理成報表：RTP、命中率、bonus 觸發、big win 與贏倍分布。
package stats

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/spinflow/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// SessionReport 一段 replay 的統計報告
type SessionReport struct {
	Summary *SummaryReport `json:"Summary"`
	Mult    *MultReport    `json:"Mult"`
	Dist    *DistReport    `json:"Dist"`
	Bonus   *BonusReport   `json:"Bonus"`
	Player  *PlayerReport  `json:"Player,omitzero"`
	isDone  bool
}

type SummaryReport struct {
	GameName      string   `json:"GameName"`
	GameId        spec.GID `json:"GameId"`
	Wager         int64    `json:"Wager"`
	TotalWager    int64    `json:"TotalWager"`
	TotalWin      int64    `json:"TotalWin"`
	BaseWin       int64    `json:"BaseWin"`
	BonusWin      int64    `json:"BonusWin"`
	RTP           float64  `json:"RTP"`
	RtpCI         CI       `json:"RtpCI"`
	Std           float64  `json:"Std"`
	Cv            float64  `json:"Cv"`
	NoWinSpins    int      `json:"NoWinSpins"`
	HitRate       float64  `json:"HitRate"`
	HitCI         CI       `json:"HitCI"`
	Trigger       int      `json:"Trigger"`
	TriggerRate   float64  `json:"TriggerRate"`
	TriggerCI     CI       `json:"TriggerCI"`
	BigWins       int      `json:"BigWins"`
	Reevaluations int      `json:"Reevaluations"`
	Freespins     int      `json:"Freespins"`
	Faults        int      `json:"Faults"`
	Spins         int      `json:"Spins"`
}

// MultReport 單局贏倍（win / wager）統計，Done 時由 Samples 算出
type MultReport struct {
	Samples []float64 `json:"-" yaml:"-"`
	Mean    float64   `json:"Mean"`
	Std     float64   `json:"Std"`
	Median  float64   `json:"Median"`
	P90     float64   `json:"P90"`
	P99     float64   `json:"P99"`
	Max     float64   `json:"Max"`
}

// DistReport 贏倍區間落點
type DistReport struct {
	WinBucket  []string  `json:"WinBucket"`
	WinCollect []int     `json:"WinCollect"`
	WinDist    []float64 `json:"WinDist"`
}

// BonusReport 依類別統計 bonus 觸發次數與贏分
type BonusReport struct {
	Count map[string]int   `json:"Count"`
	Win   map[string]int64 `json:"Win"`
}

// PlayerReport 玩家餘額走勢。沒有設定初始餘額時為空
type PlayerReport struct {
	InitBalance int64 `json:"InitBalance"`
	Balance     int64 `json:"Balance"`
	MaxBalance  int64 `json:"MaxBalance"`
	MinBalance  int64 `json:"MinBalance"`
	Bust        bool  `json:"Bust"`
}

// NewSessionReport 建立空報表
func NewSessionReport(name string, id spec.GID, wager int64) *SessionReport {
	n := len(bucketLabels)
	return &SessionReport{
		Summary: &SummaryReport{GameName: name, GameId: id, Wager: wager},
		Mult:    &MultReport{},
		Dist: &DistReport{
			WinBucket:  BucketLabels(),
			WinCollect: make([]int, n),
		},
		Bonus:  &BonusReport{Count: map[string]int{}, Win: map[string]int64{}},
		Player: &PlayerReport{},
	}
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 把累積的計數轉成最終結果，可重複呼叫
func (s *SessionReport) Done() {
	if s.isDone {
		return
	}
	sm := s.Summary
	sm.RTP = s.Rtp()
	sm.Std = s.Std()
	sm.Cv = s.Cv()
	sm.RtpCI = s.Ci()
	if sm.Spins > 0 {
		hits := sm.Spins - sm.NoWinSpins
		sm.HitRate, sm.HitCI = proportionCICP(hits, sm.Spins, 0.95)
		sm.TriggerRate, sm.TriggerCI = proportionCICP(sm.Trigger, sm.Spins, 0.95)
	}

	m := s.Mult
	if len(m.Samples) > 0 {
		sorted := slices.Clone(m.Samples)
		slices.Sort(sorted)
		m.Mean = stat.Mean(sorted, nil)
		if len(sorted) > 1 {
			m.Std = stat.StdDev(sorted, nil)
		}
		m.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		m.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
		m.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
		m.Max = sorted[len(sorted)-1]
	}

	d := s.Dist
	d.WinDist = make([]float64, len(d.WinCollect))
	if sm.Spins > 0 {
		for i, c := range d.WinCollect {
			d.WinDist[i] = float64(c) / float64(sm.Spins)
		}
	}
	s.isDone = true
}

// Rtp 總贏分 / 總押注
func (s *SessionReport) Rtp() float64 {
	if s.Summary.Spins == 0 || s.Summary.TotalWager == 0 {
		return 0
	}
	return float64(s.Summary.TotalWin) / float64(s.Summary.TotalWager)
}

// Std 單局贏倍的樣本標準差
func (s *SessionReport) Std() float64 {
	if len(s.Mult.Samples) < 2 {
		return 0
	}
	return stat.StdDev(s.Mult.Samples, nil)
}

// Cv 變異係數
func (s *SessionReport) Cv() float64 {
	rtp := s.Rtp()
	if rtp <= 0 {
		return 0
	}
	return s.Std() / rtp
}

// Ci RTP 的 95% 常態近似信賴區間
func (s *SessionReport) Ci() CI {
	rtp := s.Rtp()
	n := len(s.Mult.Samples)
	if n < 2 {
		return CI{Lo: rtp, Hi: rtp}
	}
	z := distuv.UnitNormal.Quantile(0.975)
	se := s.Std() / math.Sqrt(float64(n))
	return CI{Lo: max(rtp-z*se, 0), Hi: rtp + z*se}
}

func (s *SessionReport) WriteWith(w io.Writer, rep SessionReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 印出摘要表與花費時間
func (s *SessionReport) StdOut(ut time.Duration) {
	s.Done()
	fmt.Print(formatDuration(ut, s.Summary.Spins))
	keys, msg := s.fmtBasic()
	fmt.Println(fmtTable(s.Summary.GameName, keys, msg))
	if len(s.Bonus.Count) > 0 {
		keys, msg = s.fmtBonus()
		fmt.Println(fmtTable("Bonus", keys, msg))
	}
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, spins int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	sps := int(float64(spins) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nsps : %d spins/sec\n", sec, sps)
	}
	h, m, ss := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nsps : %d spins/sec\n", m, ss, sps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nsps : %d spins/sec\n", h, m, ss, sps)
}

func (s *SessionReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sm := s.Summary
	basic := map[string]string{
		"Game Name":     sm.GameName,
		"Game ID":       fmt.Sprintf("%d", sm.GameId),
		"Spins":         p.Sprintf("%d", sm.Spins),
		"Wager":         p.Sprintf("%d", sm.Wager),
		"RTP":           p.Sprintf("%.2f %%", 100.0*sm.RTP),
		"RTP 95% CI":    p.Sprintf("[%.2f%%,%.2f%%]", 100.0*sm.RtpCI.Lo, 100.0*sm.RtpCI.Hi),
		"Total Wager":   p.Sprintf("%d", sm.TotalWager),
		"Total Win":     p.Sprintf("%d", sm.TotalWin),
		"Base Win":      p.Sprintf("%d", sm.BaseWin),
		"Bonus Win":     p.Sprintf("%d", sm.BonusWin),
		"Hit Rate":      p.Sprintf("%.2f %%", 100.0*sm.HitRate),
		"Trigger":       p.Sprintf("%d (%.2f %%)", sm.Trigger, 100.0*sm.TriggerRate),
		"Big Wins":      p.Sprintf("%d", sm.BigWins),
		"Reevaluations": p.Sprintf("%d", sm.Reevaluations),
		"Freespins":     p.Sprintf("%d", sm.Freespins),
		"Faults":        p.Sprintf("%d", sm.Faults),
		"Mult Mean/Std": p.Sprintf("%.3f / %.3f", s.Mult.Mean, s.Mult.Std),
		"Mult P50/P99":  p.Sprintf("%.2f / %.2f", s.Mult.Median, s.Mult.P99),
		"Mult Max":      p.Sprintf("%.2f", s.Mult.Max),
	}
	keys := []string{"Game Name", "Game ID", "Spins", "Wager", "RTP", "RTP 95% CI", "Total Wager", "Total Win", "Base Win", "Bonus Win", "Hit Rate", "Trigger", "Big Wins", "Reevaluations", "Freespins", "Faults", "Mult Mean/Std", "Mult P50/P99", "Mult Max"}
	return keys, basic
}

func (s *SessionReport) fmtBonus() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := slices.Sorted(maps.Keys(s.Bonus.Count))
	msg := make(map[string]string, len(keys))
	for _, k := range keys {
		msg[k] = p.Sprintf("%d hits, %d win", s.Bonus.Count[k], s.Bonus.Win[k])
	}
	return keys, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	keyW, valW := runewidth.StringWidth(title), 0
	for _, k := range keys {
		keyW = max(keyW, runewidth.StringWidth(k))
		valW = max(valW, runewidth.StringWidth(msg[k]))
	}
	keyW += 2
	valW += 2
	inner := keyW + valW + 1

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	left := (inner - runewidth.StringWidth(title)) / 2
	b.WriteString("|" + blank(left) + title + blank(inner-runewidth.StringWidth(title)-left) + "|\n")
	divider := "+" + strings.Repeat("-", keyW) + "+" + strings.Repeat("-", valW) + "+\n"
	b.WriteString(divider)
	for _, k := range keys {
		b.WriteString("| " + runewidth.FillRight(k, keyW-2) + " | " + runewidth.FillRight(msg[k], valW-2) + " |\n")
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
