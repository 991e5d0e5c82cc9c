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

// Package session 驅動一輪 spin：從送出請求、停輪、reevaluation、bonus 到滾分與結算。
//
// Session 是單執行緒的狀態機。每個狀態是一個 step，driver 迴圈依 step 的回傳值前進，
// 所有等待（結果、動畫、計時）都是明確的 join 點。
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/ledger"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/spec"
)

// BonusRecord 一次 bonus 分派的紀錄
type BonusRecord struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Win      int64  `json:"win"`
}

// Report 一輪 spin 的結果摘要
type Report struct {
	SessionID     string        `json:"session_id"`
	SpinID        string        `json:"spin_id"`
	Wager         int64         `json:"wager"`
	Win           int64         `json:"win"`
	BigWin        int64         `json:"big_win"`
	Complete      bool          `json:"complete"`
	Next          string        `json:"next"`
	Bonuses       []BonusRecord `json:"bonuses,omitempty"`
	Reevaluations int           `json:"reevaluations"`
	Freespins     int           `json:"freespins"`
	Trace         []string      `json:"trace"`

	Outcome *outcome.Node `json:"-"`
}

// Session 一個玩家在一款遊戲上的 spin 狀態機。非並行安全，同一時間只能有一輪 spin。
type Session struct {
	id       string
	env      Env
	log      *slog.Logger
	game     *spec.GameSetting
	settings *spec.SessionSetting
	catalog  outcome.Catalog
	strategy Strategy
	ledger   *ledger.Ledger

	// spin 狀態
	state    State
	trace    []State
	complete bool
	next     Next
	report   *Report

	req        SpinRequest
	wager      int64
	multiplier int
	preset     map[string]any

	outcome     *outcome.Node
	current     *outcome.Node
	bonusSrc    *outcome.Node
	reevalQueue []*outcome.Node
	stopOrder   StopOrder
	reelSet     string
	stickies    []outcome.Sticky

	pendingWin     int64
	runningAtStart int64
	basePaid       bool
	bigWinShown    bool
	coinsChecked   bool
	hookPasses     int

	executingAfterPayout bool
	deferredFreespins    *outcome.Bonus
	activeFS             *Freespins

	// fs 非 nil 代表本 session 是 free spin 序列中的一輪
	fs *Freespins

	autoSpinsRemaining int
	lastWager          int64
}

// Option 建立 Session 的選項
type Option func(*Session)

// WithLedger 共用外部帳本
func WithLedger(l *ledger.Ledger) Option {
	return func(s *Session) { s.ledger = l }
}

// WithStrategy 取代設定檔決定的盤面策略
func WithStrategy(st Strategy) Option {
	return func(s *Session) { s.strategy = st }
}

// WithID 指定 session id，未指定則產生 uuid
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New 建立某款遊戲的 session
func New(gameID spec.GID, env Env, opts ...Option) (*Session, error) {
	if env.Catalog == nil || env.Surface == nil || env.Sink == nil || env.Display == nil {
		return nil, errs.NewFatal("session : catalog, surface, sink and display are required")
	}
	game, err := env.Catalog.Game(gameID)
	if err != nil {
		return nil, errs.Wrap(err, "session : game lookup failed")
	}
	cat, err := env.Catalog.Bonuses(gameID)
	if err != nil {
		return nil, errs.Wrap(err, "session : bonus catalog lookup failed")
	}
	if env.Clock == nil {
		env.Clock = WallClock()
	}
	if env.Log == nil {
		env.Log = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		env:      env,
		game:     game,
		settings: &game.Session,
		catalog:  cat,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.ledger == nil {
		s.ledger = ledger.New()
	}
	if s.strategy == nil {
		s.strategy = StrategyFor(s.settings)
	}
	s.log = env.Log.With("session_id", s.id, "game", game.GameName)
	return s, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// SubmitSpin 跑完整的一輪 spin：Idle → ... → Idle
func (s *Session) SubmitSpin(ctx context.Context, wager int64, multiplier int) (*Report, error) {
	if err := s.ready(wager); err != nil {
		return nil, err
	}
	s.begin(wager, multiplier, nil)
	return s.finish(s.drive(ctx, StatePrespin))
}

// SubmitAutoSpin 連續 spin，直到次數用完、餘額不足或出錯
func (s *Session) SubmitAutoSpin(ctx context.Context, wager int64, multiplier int, count int) ([]*Report, error) {
	var out []*Report
	s.autoSpinsRemaining = count
	for s.autoSpinsRemaining > 0 {
		s.autoSpinsRemaining--
		r, err := s.SubmitSpin(ctx, wager, multiplier)
		if r != nil {
			out = append(out, r)
		}
		if err != nil {
			s.autoSpinsRemaining = 0
			return out, err
		}
		if s.next != NextAutoSpin {
			break
		}
	}
	return out, nil
}

// SubmitForcedOutcome 以除錯目錄中的結果跑一輪 spin，流程與一般 spin 相同
func (s *Session) SubmitForcedOutcome(ctx context.Context, key string) (*Report, error) {
	if s.env.Forced == nil {
		return nil, errs.Config("session : forced outcomes not configured")
	}
	wager := s.lastWager
	if wager <= 0 {
		wager = int64(s.game.DefaultBet())
	}
	if err := s.ready(wager); err != nil {
		return nil, err
	}
	doc, err := s.env.Forced.Forced(ctx, key)
	if err != nil {
		return nil, errs.Wrap(err, "session : forced outcome "+key)
	}
	s.begin(wager, 1, doc)
	return s.finish(s.drive(ctx, StatePrespin))
}

// ResumeAt 從指定狀態重新驅動，供中斷後恢復使用
func (s *Session) ResumeAt(ctx context.Context, st State) error {
	if s.report == nil {
		return errs.NewWarn("session : nothing to resume")
	}
	return s.drive(ctx, st)
}

// CurrentOutcome 目前的結果樹，尚未收到結果時為 nil
func (s *Session) CurrentOutcome() *outcome.Node { return s.outcome }

func (s *Session) IsSpinComplete() bool { return s.complete }

// RunningPayout 目前滾分累計
func (s *Session) RunningPayout() int64 { return s.ledger.Running() }

// StopOrderFor 格子的停輪時序；找不到回傳 -1 並記錄一致性故障
func (s *Session) StopOrderFor(reel, row, layer int) int {
	if s.stopOrder.index == nil {
		s.stopOrder = s.strategy.StopOrder(&s.game.Layout, s.current, s.settings.Anticipation())
	}
	if i, ok := s.stopOrder.IndexOf(reel, row, layer); ok {
		return i
	}
	errs.Report(s.log, "stop order", errs.Consistency("no stop index for reel=%d row=%d layer=%d", reel, row, layer))
	return -1
}

// Trace 本輪經過的狀態
func (s *Session) Trace() []State { return append([]State(nil), s.trace...) }

func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

// Next spin 結束後的去向
func (s *Session) Next() Next { return s.next }

func (s *Session) Game() *spec.GameSetting { return s.game }

func (s *Session) Wager() int64 { return s.wager }

// InFreespins 本 session 是否為 free spin 序列中的一輪
func (s *Session) InFreespins() bool { return s.fs != nil }

// Freespins 目前或最近一次 base game 內的 free spin 序列
func (s *Session) Freespins() *Freespins { return s.activeFS }

// Stickies 目前盤面上的黏性圖標
func (s *Session) Stickies() []outcome.Sticky { return append([]outcome.Sticky(nil), s.stickies...) }

// ============================================================
// ** driver **
// ============================================================

func (s *Session) ready(wager int64) error {
	if s.state != StateIdle {
		return errs.Warnf("session : spin in progress (state=%s)", s.state)
	}
	if wager <= 0 {
		return errs.Player("session : wager must be positive, got %d", wager)
	}
	return nil
}

func (s *Session) begin(wager int64, multiplier int, preset map[string]any) {
	spinID := uuid.NewString()
	s.wager, s.multiplier, s.preset = wager, multiplier, preset
	s.lastWager = wager
	s.req = SpinRequest{SessionID: s.id, SpinID: spinID, GameID: s.game.GameID, Wager: wager, Multiplier: multiplier}
	s.report = &Report{SessionID: s.id, SpinID: spinID, Wager: wager}
	s.trace = s.trace[:0]
}

func (s *Session) finish(err error) (*Report, error) {
	r := s.report
	r.Complete = s.complete
	r.Next = nextNames[s.next]
	r.Outcome = s.outcome
	r.Trace = make([]string, len(s.trace))
	for i, st := range s.trace {
		r.Trace[i] = st.String()
	}
	return r, err
}

var nextNames = map[Next]string{NextIdle: "idle", NextAutoSpin: "auto_spin", NextFreespin: "freespin"}

// drive 從 from 開始推進，直到回到 Idle。回傳的錯誤都已記錄過。
func (s *Session) drive(ctx context.Context, from State) error {
	s.state = from
	for s.state != StateIdle {
		s.trace = append(s.trace, s.state)
		next, err := s.step(ctx)
		if err != nil {
			s.state = StateIdle
			return err
		}
		s.state = next
	}
	return nil
}

func (s *Session) step(ctx context.Context) (State, error) {
	switch s.state {
	case StatePrespin:
		return s.prespin(ctx)
	case StateAwaitingOutcome:
		return s.awaitOutcome(ctx)
	case StateReelsSettling:
		return s.reelsSettling(ctx)
	case StateReevaluationLoop:
		return s.strategy.ConsumeReevaluations(ctx, s)
	case StateBonusDispatch:
		return s.bonusDispatch(ctx)
	case StateRollup:
		return s.rollup(ctx)
	case StateContinueWhenReady:
		return s.continueWhenReady(ctx)
	}
	return StateIdle, errs.Fatalf("session : unknown state %d", s.state)
}

func (s *Session) classifyOpts() outcome.Options {
	return outcome.Options{
		RelativeMultiplier:   decimal.NewFromInt(int64(max(s.multiplier, 1))),
		Gifts:                s.env.Gifts,
		TriggeringAdditional: s.settings.TriggerAdditional,
		Log:                  s.log,
	}
}
