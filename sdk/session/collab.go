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
	"log/slog"
	"time"

	"github.com/zintix-labs/spinflow/sdk/cascade"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/spec"
)

// SpinRequest 送給結果來源的請求
type SpinRequest struct {
	SessionID  string   `json:"session_id"`
	SpinID     string   `json:"spin_id"`
	GameID     spec.GID `json:"game_id"`
	Wager      int64    `json:"wager"`
	Multiplier int      `json:"multiplier"`
}

// ResultSource 產生一份結果文件。可能是網路請求也可能是本地 fixture，session 不在意。
// 逾時由 session 控制，實作只需在 ctx 取消時盡快返回。
type ResultSource interface {
	Fetch(ctx context.Context, req SpinRequest) (map[string]any, error)
}

// ForcedSource 以 key 取得指定的除錯結果
type ForcedSource interface {
	Forced(ctx context.Context, key string) (map[string]any, error)
}

// GameCatalog 以遊戲編號取設定與 bonus 目錄
type GameCatalog interface {
	Game(id spec.GID) (*spec.GameSetting, error)
	Bonuses(id spec.GID) (outcome.Catalog, error)
}

// ReelSurface 輪軸與動畫。session 只呼叫，不實作。
type ReelSurface interface {
	SpinReels(ctx context.Context, reels []int, layer int) error
	StopReels(ctx context.Context, stops []int, order StopOrder, layer int) error
	// AnimationCount 進行中的動畫數，歸零代表已落定
	AnimationCount() int
	SlamStopPressed() bool
	ApplySymbol(pos outcome.Position, symbol string, sticky bool) error
	SetReplacements(m map[string]string)
	ClearOverrides()
	ClearStickies()
	SetReelSet(name string) error
	// Snapshot 目前可視盤面
	Snapshot(layer int) cascade.Grid
	// SetGrid 消除 removed 後落下新盤面
	SetGrid(ctx context.Context, layer int, g cascade.Grid, removed []int16) error
}

// LedgerSink 真正扣款與派彩的錢包服務
type LedgerSink interface {
	Balance(ctx context.Context) (int64, error)
	Debit(ctx context.Context, amount int64) error
	Credit(ctx context.Context, amount int64) error
}

// Display 滾分、大獎與提示
type Display interface {
	RollupTick(value int64)
	BigWin(ctx context.Context, amount int64) error
	OutOfCoins()
	ResetSoundOverrides()
}

// BonusRunner 執行不在 base game 內進行的 bonus，回傳 bonus 贏分
type BonusRunner interface {
	RunBonus(ctx context.Context, b *outcome.Bonus) (int64, error)
}

// Refresher 致命故障時強制整個遊戲重新整理
type Refresher interface {
	ForceRefresh(reason error)
}

// Clock 可替換的計時來源
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WallClock 真實時間
func WallClock() Clock { return wallClock{} }

// Env session 需要的所有外部協作者，由組裝端明確傳入
type Env struct {
	Source    ResultSource
	Forced    ForcedSource
	Catalog   GameCatalog
	Surface   ReelSurface
	Sink      LedgerSink
	Display   Display
	Hooks     []Hook
	Bonuses   BonusRunner
	Refresher Refresher
	Clock     Clock
	Gifts     *outcome.GiftQueue
	Log       *slog.Logger
}
