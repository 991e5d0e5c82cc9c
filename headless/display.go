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
	"time"

	"github.com/zintix-labs/spinflow/sdk/session"
)

// Display 只記錄呼叫的顯示層
type Display struct {
	mu         sync.Mutex
	Ticks      []int64
	BigWins    []int64
	Broke      int
	SoundReset int
}

var _ session.Display = (*Display)(nil)

func (d *Display) RollupTick(value int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Ticks = append(d.Ticks, value)
}

func (d *Display) BigWin(ctx context.Context, amount int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.BigWins = append(d.BigWins, amount)
	return nil
}

func (d *Display) OutOfCoins() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Broke++
}

func (d *Display) ResetSoundOverrides() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.SoundReset++
}

// Refresher 記錄強制刷新次數
type Refresher struct {
	mu      sync.Mutex
	Count   int
	Reasons []error
}

var _ session.Refresher = (*Refresher)(nil)

func (r *Refresher) ForceRefresh(reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Count++
	r.Reasons = append(r.Reasons, reason)
}

// Clock 短於 Cutoff 的等待立即到期，其餘永不到期。Cutoff 為 0 時所有等待都立即到期。
// 回放時把 Cutoff 設成結果逾時，就能略過動畫時間又不會誤觸逾時。
type Clock struct {
	Cutoff time.Duration
}

var _ session.Clock = Clock{}

var fired = func() chan time.Time {
	ch := make(chan time.Time)
	close(ch)
	return ch
}()

func (c Clock) After(d time.Duration) <-chan time.Time {
	if c.Cutoff > 0 && d >= c.Cutoff {
		return nil
	}
	return fired
}
