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

package recorder

import (
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/spec"
	"github.com/zintix-labs/spinflow/stats"
)

// SpinRecorder 遊戲紀錄員
//
// SpinRecorder 逐輪記錄 session.Report，並透過 Done 輸出統計報表
type SpinRecorder struct {
	GameName string
	GameId   spec.GID
	Wager    int64
	report   *stats.SessionReport
	player   *PlayerRecord
}

// PlayerRecord 玩家餘額追蹤
type PlayerRecord struct {
	InitBalance int64
	Balance     int64
	MaxBalance  int64
	MinBalance  int64
	Bust        bool
}

func NewSpinRecorder(name string, id spec.GID, wager int64, initBalance int64) (*SpinRecorder, error) {
	if wager <= 0 {
		return nil, errs.Config("recorder wager must be positive, got %d", wager)
	}
	if initBalance < 0 {
		return nil, errs.Config("init balance must not be negative, got %d", initBalance)
	}
	s := &SpinRecorder{
		GameName: name,
		GameId:   id,
		Wager:    wager,
		report:   stats.NewSessionReport(name, id, wager),
	}
	if initBalance > 0 {
		s.player = &PlayerRecord{InitBalance: initBalance, Balance: initBalance, MaxBalance: initBalance, MinBalance: initBalance}
	}
	return s, nil
}

// Record 記錄一輪完成的 spin。沒有開始的 spin（nil）不計
func (s *SpinRecorder) Record(r *session.Report) {
	if r == nil {
		return
	}
	sm := s.report.Summary
	wager := r.Wager
	if wager <= 0 {
		wager = s.Wager
	}
	var bonusWin int64
	for _, b := range r.Bonuses {
		s.report.Bonus.Count[b.Category]++
		s.report.Bonus.Win[b.Category] += b.Win
		bonusWin += b.Win
	}
	bonusWin = min(bonusWin, r.Win)

	sm.Spins++
	sm.TotalWager += wager
	sm.TotalWin += r.Win
	sm.BonusWin += bonusWin
	sm.BaseWin += r.Win - bonusWin
	sm.Reevaluations += r.Reevaluations
	sm.Freespins += r.Freespins
	if r.Win == 0 {
		sm.NoWinSpins++
	}
	if len(r.Bonuses) > 0 {
		sm.Trigger++
	}
	if r.BigWin > 0 {
		sm.BigWins++
	}
	s.report.Dist.WinCollect[stats.BucketIndex(r.Win, wager)]++
	s.report.Mult.Samples = append(s.report.Mult.Samples, float64(r.Win)/float64(wager))

	if p := s.player; p != nil {
		p.Balance += r.Win - wager
		p.MaxBalance = max(p.MaxBalance, p.Balance)
		p.MinBalance = min(p.MinBalance, p.Balance)
		if p.Balance < s.Wager {
			p.Bust = true
		}
	}
}

// RecordFault 記錄一輪以錯誤結束的 spin
func (s *SpinRecorder) RecordFault(err error) {
	if err != nil {
		s.report.Summary.Faults++
	}
}

// Busted 玩家餘額已不足一注
func (s *SpinRecorder) Busted() bool {
	return s.player != nil && s.player.Bust
}

// Spins 已記錄的輪數
func (s *SpinRecorder) Spins() int {
	return s.report.Summary.Spins
}

// Done 結算並回傳報表
func (s *SpinRecorder) Done() *stats.SessionReport {
	if p := s.player; p != nil {
		s.report.Player = &stats.PlayerReport{
			InitBalance: p.InitBalance,
			Balance:     p.Balance,
			MaxBalance:  p.MaxBalance,
			MinBalance:  p.MinBalance,
			Bust:        p.Bust,
		}
	}
	s.report.Done()
	return s.report
}

// MergeSpinRecorder 合併多個 worker 的紀錄，玩家資料不合併
func MergeSpinRecorder(r []*SpinRecorder) (*SpinRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge spin record err : empty input")
	}
	r0 := r[0]
	s, err := NewSpinRecorder(r0.GameName, r0.GameId, r0.Wager, 0)
	if err != nil {
		return nil, err
	}
	dst := s.report
	for _, v := range r {
		if v.GameId != r0.GameId {
			return nil, errs.NewFatal("merge spin record err : different game")
		}
		if v.Wager != r0.Wager {
			return nil, errs.NewFatal("merge spin record err : different wager")
		}
		src := v.report.Summary
		dst.Summary.Spins += src.Spins
		dst.Summary.TotalWager += src.TotalWager
		dst.Summary.TotalWin += src.TotalWin
		dst.Summary.BaseWin += src.BaseWin
		dst.Summary.BonusWin += src.BonusWin
		dst.Summary.NoWinSpins += src.NoWinSpins
		dst.Summary.Trigger += src.Trigger
		dst.Summary.BigWins += src.BigWins
		dst.Summary.Reevaluations += src.Reevaluations
		dst.Summary.Freespins += src.Freespins
		dst.Summary.Faults += src.Faults
		for i, c := range v.report.Dist.WinCollect {
			dst.Dist.WinCollect[i] += c
		}
		for k, c := range v.report.Bonus.Count {
			dst.Bonus.Count[k] += c
			dst.Bonus.Win[k] += v.report.Bonus.Win[k]
		}
		dst.Mult.Samples = append(dst.Mult.Samples, v.report.Mult.Samples...)
	}
	return s, nil
}
