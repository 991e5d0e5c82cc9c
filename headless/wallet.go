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

package headless

import (
	"context"
	"sync"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/session"
)

// Wallet 記憶體錢包
type Wallet struct {
	mu       sync.Mutex
	balance  int64
	debited  int64
	credited int64
}

var _ session.LedgerSink = (*Wallet)(nil)

func NewWallet(balance int64) *Wallet {
	return &Wallet{balance: balance}
}

func (w *Wallet) Balance(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

func (w *Wallet) Debit(ctx context.Context, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount < 0 {
		return errs.Warnf("headless : negative debit %d", amount)
	}
	if amount > w.balance {
		return errs.Player("headless : balance %d below debit %d", w.balance, amount)
	}
	w.balance -= amount
	w.debited += amount
	return nil
}

func (w *Wallet) Credit(ctx context.Context, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount < 0 {
		return errs.Warnf("headless : negative credit %d", amount)
	}
	w.balance += amount
	w.credited += amount
	return nil
}

// Totals 累計扣款與入帳
func (w *Wallet) Totals() (debited, credited int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.debited, w.credited
}
