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

package session

import (
	"context"
	"fmt"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/outcome"
)

// HookPoint 功能模組被詢問的時間點
type HookPoint uint8

const (
	HookPreSpin HookPoint = iota
	HookPostReelStop
	HookPreBonusCreation
	HookPostPaylineDisplay
	HookPreBigWin
	HookPostBigWin
	HookFreespinEnd
	HookBetweenSpins
)

var hookNames = [...]string{
	"pre_spin",
	"post_reel_stop",
	"pre_bonus_creation",
	"post_payline_display",
	"pre_big_win",
	"post_big_win",
	"freespin_end",
	"between_spins",
}

func (p HookPoint) String() string {
	if int(p) < len(hookNames) {
		return hookNames[p]
	}
	return "unknown"
}

// Hook 功能模組。先問 NeedsToRun，需要才呼叫 Run。
// Hook 的錯誤或 panic 只會被記錄，不會中止 spin。
type Hook interface {
	NeedsToRun(point HookPoint, s *Session) bool
	Run(ctx context.Context, point HookPoint, s *Session) error
}

// BonusScreenClaimer 由模組自行建立 bonus 畫面
type BonusScreenClaimer interface {
	ClaimsBonusScreen(b *outcome.Bonus) bool
}

// BigWinDeferrer 暫緩大獎演出
type BigWinDeferrer interface {
	DefersBigWin(s *Session) bool
}

// StickyClearClaimer 由模組稍後自行清除黏性圖標
type StickyClearClaimer interface {
	ClaimsStickyClear(s *Session) bool
}

// BigWinForcer 解鎖前強制演出大獎
type BigWinForcer interface {
	ForceBigWin(s *Session) (amount int64, ok bool)
}

// maxHookPasses 同一輪 spin 內 between-spins hook 的重入上限
const maxHookPasses = 8

func (s *Session) runHooks(ctx context.Context, point HookPoint) int {
	ran := 0
	for _, h := range s.env.Hooks {
		if !s.hookNeeds(h, point) {
			continue
		}
		s.hookRun(ctx, h, point)
		ran++
	}
	return ran
}

func (s *Session) hookNeeds(h Hook, point HookPoint) (need bool) {
	defer func() {
		if r := recover(); r != nil {
			s.hookFault(h, point, fmt.Errorf("panic: %v", r))
			need = false
		}
	}()
	return h.NeedsToRun(point, s)
}

func (s *Session) hookRun(ctx context.Context, h Hook, point HookPoint) {
	defer func() {
		if r := recover(); r != nil {
			s.hookFault(h, point, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := h.Run(ctx, point, s); err != nil {
		s.hookFault(h, point, err)
	}
}

func (s *Session) hookFault(h Hook, point HookPoint, err error) {
	e := errs.Warnf("hook %T at %s failed", h, point)
	e.Cause = err
	errs.Report(s.log, "hook failed", e)
}

// claims 任一 hook 實作 T 且 pred 為真；pred panic 視為 false
func claims[T any](hooks []Hook, pred func(T) bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	for _, h := range hooks {
		if c, ok := h.(T); ok && pred(c) {
			return true
		}
	}
	return false
}
