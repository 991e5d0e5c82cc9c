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

// Package ledger 追蹤一輪 spin 的派彩對帳狀態。
//
// Ledger 只記錄「應該對帳多少」，實際扣款與入帳由外部的 LedgerSink 負責。
package ledger

import (
	"github.com/zintix-labs/spinflow/errs"
)

// Ledger 派彩帳本。
//
//   - running: 已滾分但尚未確認付給玩家的累計值
//   - paid: 已確認轉入玩家餘額的值
//   - lastDelta: 最近一次滾分的增量，中斷後恢復時使用
//
// 新的完整 spin 開始時必須 running == paid。
type Ledger struct {
	running   int64
	paid      int64
	lastDelta int64
}

func New() *Ledger { return &Ledger{} }

// StartSpin 開始一輪 spin。
// carryOver=true（free spin 進行中）時沿用累計值且不檢查；
// 否則檢查 running == paid，不平時回傳一致性故障，並照常歸零繼續。
func (l *Ledger) StartSpin(carryOver bool) error {
	if carryOver {
		return nil
	}
	var err error
	if l.running != l.paid {
		err = errs.Consistency("ledger not reconciled at spin start: running=%d paid=%d", l.running, l.paid)
	}
	l.running, l.paid, l.lastDelta = 0, 0, 0
	return err
}

// Rollup 累加一次滾分增量
func (l *Ledger) Rollup(delta int64) {
	l.running += delta
	l.lastDelta = delta
}

// Fold 把尚未確認的部分併入 paid，回傳本次新確認的金額。重複呼叫不會重複入帳。
func (l *Ledger) Fold() int64 {
	d := l.running - l.paid
	l.paid = l.running
	return d
}

// Zero 功能先把 base game 付清後進 bonus 時使用
func (l *Ledger) Zero() {
	l.running, l.paid, l.lastDelta = 0, 0, 0
}

func (l *Ledger) Running() int64   { return l.running }
func (l *Ledger) Paid() int64      { return l.paid }
func (l *Ledger) LastDelta() int64 { return l.lastDelta }

// Pending 已滾分未確認
func (l *Ledger) Pending() int64 { return l.running - l.paid }

func (l *Ledger) Reconciled() bool { return l.running == l.paid }
