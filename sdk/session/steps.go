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
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/outcome"
)

// ============================================================
// ** Prespin **
// ============================================================

func (s *Session) prespin(ctx context.Context) (State, error) {
	if err := s.ledger.StartSpin(s.fs != nil); err != nil {
		errs.Report(s.log, "ledger", err)
	}
	s.resetSpin()
	s.env.Surface.ClearOverrides()
	if !claims(s.env.Hooks, func(c StickyClearClaimer) bool { return c.ClaimsStickyClear(s) }) {
		s.env.Surface.ClearStickies()
		s.stickies = nil
	}
	s.env.Display.ResetSoundOverrides()
	s.runHooks(ctx, HookPreSpin)

	if s.fs != nil {
		return StateAwaitingOutcome, nil
	}
	bal, err := s.env.Sink.Balance(ctx)
	if err != nil {
		e := errs.Protocol("session : balance lookup failed")
		e.Cause = err
		return StateIdle, s.fatal(e)
	}
	if bal < s.wager {
		s.env.Display.OutOfCoins()
		s.autoSpinsRemaining = 0
		err := errs.Player("insufficient balance: have %d, wager %d", bal, s.wager)
		errs.Report(s.log, "spin rejected", err)
		return StateIdle, err
	}
	if err := s.env.Sink.Debit(ctx, s.wager); err != nil {
		e := errs.Protocol("session : wager debit failed")
		e.Cause = err
		return StateIdle, s.fatal(e)
	}
	return StateAwaitingOutcome, nil
}

// resetSpin 清除上一輪 spin 的暫存狀態
func (s *Session) resetSpin() {
	s.complete = false
	s.next = NextIdle
	s.outcome, s.current, s.bonusSrc = nil, nil, nil
	s.reevalQueue = nil
	s.stopOrder = StopOrder{}
	s.pendingWin = 0
	s.runningAtStart = s.ledger.Running()
	s.basePaid = false
	s.bigWinShown = false
	s.coinsChecked = false
	s.hookPasses = 0
	s.executingAfterPayout = false
	s.deferredFreespins = nil
	s.activeFS = nil
}

// fatal 記錄致命故障並要求整個遊戲重新整理，不重送請求
func (s *Session) fatal(err error) error {
	errs.Report(s.log, "spin aborted", err)
	if s.env.Refresher != nil {
		s.env.Refresher.ForceRefresh(err)
	}
	return err
}

// ============================================================
// ** AwaitingOutcome **
// ============================================================

type fetchResult struct {
	doc map[string]any
	err error
}

func (s *Session) awaitOutcome(ctx context.Context) (State, error) {
	if s.fs == nil {
		if err := s.env.Surface.SpinReels(ctx, s.allReels(), 0); err != nil {
			errs.Report(s.log, "spin reels", errs.Wrap(err, "surface"))
		}
	}

	doc := s.preset
	s.preset = nil
	if doc == nil {
		var err error
		if doc, err = s.fetch(ctx); err != nil {
			return StateIdle, s.fatal(err)
		}
	}
	if len(doc) == 0 {
		return StateIdle, s.fatal(errs.Protocol("session : empty outcome for spin %s", s.req.SpinID))
	}

	s.outcome = outcome.New(doc)
	s.current = s.outcome
	s.bonusSrc = s.outcome
	s.outcome.ProcessBonus(s.catalog, s.classifyOpts())
	return StateReelsSettling, nil
}

// fetch 送出請求並等待結果；逾時與來源錯誤都是協定故障
func (s *Session) fetch(ctx context.Context) (map[string]any, error) {
	if s.env.Source == nil {
		return nil, errs.Protocol("session : no result source")
	}
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan fetchResult, 1)
	go func() {
		doc, err := s.env.Source.Fetch(fctx, s.req)
		ch <- fetchResult{doc: doc, err: err}
	}()

	timeout := s.settings.OutcomeTimeout()
	select {
	case r := <-ch:
		if r.err != nil {
			e := errs.Protocol("session : outcome request failed for spin %s", s.req.SpinID)
			e.Cause = r.err
			return nil, e
		}
		return r.doc, nil
	case <-s.env.Clock.After(timeout):
		return nil, errs.Protocol("session : no outcome for spin %s within %s", s.req.SpinID, timeout)
	case <-ctx.Done():
		e := errs.Protocol("session : spin %s cancelled while awaiting outcome", s.req.SpinID)
		e.Cause = ctx.Err()
		return nil, e
	}
}

func (s *Session) allReels() []int {
	reels := make([]int, s.game.Layout.Columns)
	for i := range reels {
		reels[i] = i
	}
	return reels
}

// ============================================================
// ** ReelsSettling **
// ============================================================

func (s *Session) reelsSettling(ctx context.Context) (State, error) {
	if err := s.strategy.Settle(ctx, s, s.outcome); err != nil {
		errs.Report(s.log, "settle", err)
	}
	s.pendingWin += s.outcome.TotalWin()
	s.runHooks(ctx, HookPostPaylineDisplay)
	s.reevalQueue = append([]*outcome.Node(nil), s.outcome.ReevaluationSpins()...)
	return s.nextAfterDisplay(), nil
}

// settle 停輪並套用 override / sticky，等到所有動畫結束
func (s *Session) settle(ctx context.Context, n *outcome.Node) error {
	s.switchReelSet(ctx, n.ReelSetName())
	s.stopOrder = s.strategy.StopOrder(&s.game.Layout, n, s.settings.Anticipation())
	layer := max(n.Layer(), 0)
	if err := s.env.Surface.StopReels(ctx, n.SpinStops(), s.stopOrder, layer); err != nil {
		errs.Report(s.log, "stop reels", errs.Wrap(err, "surface"))
	}
	s.runHooks(ctx, HookPostReelStop)
	s.applyDirectives(ctx, n)
	return nil
}

// applyDirectives 套用 override 與 sticky 圖標後等動畫結束
func (s *Session) applyDirectives(ctx context.Context, n *outcome.Node) {
	for _, o := range n.OverrideSymbols() {
		if !o.Valid {
			errs.Report(s.log, "override symbol", errs.Config("override_symbols entry missing %v", o.Missing))
			continue
		}
		if err := s.env.Surface.ApplySymbol(o.Position, o.To, false); err != nil {
			errs.Report(s.log, "override symbol", errs.Wrap(err, "surface"))
		}
	}
	for _, st := range n.NewStickies() {
		if err := s.env.Surface.ApplySymbol(st.Position, st.Symbol, true); err != nil {
			errs.Report(s.log, "sticky symbol", errs.Wrap(err, "surface"))
			continue
		}
		s.stickies = append(s.stickies, st)
	}
	s.waitAnimations(ctx)
}

// switchReelSet 換輪帶組；設定中找不到時略過
func (s *Session) switchReelSet(ctx context.Context, name string) {
	if name == "" || name == s.reelSet {
		return
	}
	if _, err := s.game.ReelSet(name); err != nil {
		errs.Report(s.log, "reel set", err)
		return
	}
	if err := s.env.Surface.SetReelSet(name); err != nil {
		errs.Report(s.log, "reel set", errs.Wrap(err, "surface"))
		return
	}
	s.reelSet = name
}

// nextAfterDisplay 一段結果顯示完之後：先處理 reevaluation 自身的 bonus，
// 再繼續 reevaluation，最後才輪到主結果的 bonus
func (s *Session) nextAfterDisplay() State {
	if s.current != s.outcome && s.promote(s.current) {
		return StateBonusDispatch
	}
	if len(s.reevalQueue) > 0 {
		return StateReevaluationLoop
	}
	if s.promote(s.outcome) {
		return StateBonusDispatch
	}
	return StateRollup
}

// ============================================================
// ** ReevaluationLoop **
// ============================================================

// replayNext 取出下一個 reevaluation spin 重播一次
func (s *Session) replayNext(ctx context.Context) (State, error) {
	if len(s.reevalQueue) == 0 {
		return s.nextAfterDisplay(), nil
	}
	n := s.reevalQueue[0]
	s.reevalQueue = s.reevalQueue[1:]
	s.current = n
	s.report.Reevaluations++

	if m := n.ReplacementSymbols(); len(m) > 0 {
		s.env.Surface.SetReplacements(m)
	}
	s.switchReelSet(ctx, n.ReelSetName())
	layer := max(n.Layer(), 0)
	if err := s.env.Surface.SpinReels(ctx, s.spinningReels(n), layer); err != nil {
		errs.Report(s.log, "spin reels", errs.Wrap(err, "surface"))
	}
	s.sleep(ctx, s.settings.MinSpin())
	s.waitStop(ctx)
	if err := s.strategy.Settle(ctx, s, n); err != nil {
		errs.Report(s.log, "settle", err)
	}

	s.rollupNow(ctx, n.TotalWin())
	n.ProcessBonus(s.catalog, s.classifyOpts())
	s.runHooks(ctx, HookPostPaylineDisplay)
	return s.nextAfterDisplay(), nil
}

// spinningReels 扣掉 static_reels 的軸
func (s *Session) spinningReels(n *outcome.Node) []int {
	static := map[int]bool{}
	for _, r := range n.StaticReels() {
		static[r] = true
	}
	var reels []int
	for r := range s.game.Layout.Columns {
		if !static[r] {
			reels = append(reels, r)
		}
	}
	return reels
}

// ============================================================
// ** 等待 **
// ============================================================

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-s.env.Clock.After(d):
	case <-ctx.Done():
	}
}

// waitStop 模擬停輪時間，玩家按下急停則提早結束
func (s *Session) waitStop(ctx context.Context) {
	deadline := s.env.Clock.After(s.settings.SimulatedStop())
	poll := s.settings.SettlePoll()
	for !s.env.Surface.SlamStopPressed() {
		select {
		case <-deadline:
			return
		case <-ctx.Done():
			return
		case <-s.env.Clock.After(poll):
		}
	}
}

// waitAnimations 等動畫數歸零，最久等一個結果逾時的長度
func (s *Session) waitAnimations(ctx context.Context) {
	if s.env.Surface.AnimationCount() == 0 {
		return
	}
	deadline := s.env.Clock.After(s.settings.OutcomeTimeout())
	poll := s.settings.SettlePoll()
	for s.env.Surface.AnimationCount() > 0 {
		select {
		case <-deadline:
			errs.Report(s.log, "settle", errs.Consistency("animations still running after %s", s.settings.OutcomeTimeout()))
			return
		case <-ctx.Done():
			return
		case <-s.env.Clock.After(poll):
		}
	}
}

// ============================================================
// ** BonusDispatch **
// ============================================================

// promote 讓 n 成為目前的 bonus 來源；佇列頭分類不到就丟掉繼續找
func (s *Session) promote(n *outcome.Node) bool {
	if n == nil {
		return false
	}
	for {
		if n.IsBonus() {
			s.bonusSrc = n
			return true
		}
		if !n.HasQueuedBonuses() {
			return false
		}
		if n.ProcessNextBonusInQueue() {
			s.bonusSrc = n
			return true
		}
		n.AdvanceQueue()
		errs.Report(s.log, "bonus queue", errs.Consistency("queued bonus matched no catalog, dropped"))
	}
}

func (s *Session) bonusDispatch(ctx context.Context) (State, error) {
	n := s.bonusSrc
	b := n.Bonus()
	if b == nil {
		return s.afterBonus(), nil
	}
	s.runHooks(ctx, HookPreBonusCreation)

	if claims(s.env.Hooks, func(c BonusScreenClaimer) bool { return c.ClaimsBonusScreen(b) }) {
		s.record(b, 0)
		return s.afterBonus(), nil
	}
	if s.settings.PayBaseBeforeBonus && !s.basePaid && s.fs == nil {
		s.executingAfterPayout = true
		return StateRollup, nil
	}
	s.executingAfterPayout = false

	switch {
	case b.Category == outcome.Credit:
		s.pendingWin += b.WinAmount
		s.record(b, b.WinAmount)
	case b.Category == outcome.Gifting && s.fs != nil:
		s.fs.retrigger(b)
		s.record(b, 0)
	case b.Category == outcome.Gifting && s.settings.PlayFreespinsInBase:
		if s.settings.PayBaseBeforeFreespins {
			s.rollupNow(ctx, s.pendingWin)
			s.pendingWin = 0
			s.fold(ctx)
			s.ledger.Zero()
			s.runningAtStart = 0
		}
		s.deferredFreespins = b
		s.record(b, 0)
		n.AdvanceQueue()
		return StateRollup, nil
	case b.Category == outcome.Portal && n.PortalChild() != nil:
		child := n.PortalChild()
		win := s.runBonus(ctx, child)
		s.pendingWin += win
		s.record(child, win)
	default:
		win := s.runBonus(ctx, b)
		s.pendingWin += win
		s.record(b, win)
	}
	return s.afterBonus(), nil
}

// afterBonus bonus 結束：推進佇列，同來源還有 bonus 就再分派
func (s *Session) afterBonus() State {
	s.bonusSrc.AdvanceQueue()
	if s.promote(s.bonusSrc) {
		return StateBonusDispatch
	}
	if len(s.reevalQueue) > 0 {
		return StateReevaluationLoop
	}
	if s.promote(s.outcome) {
		return StateBonusDispatch
	}
	return StateRollup
}

// runBonus 獨立畫面的 bonus。免費遊戲用獨立帳本跑完整序列（序列為空時不跑），其餘交給 BonusRunner。
func (s *Session) runBonus(ctx context.Context, b *outcome.Bonus) int64 {
	if b.Category == outcome.Gifting {
		win, err := s.newFreespins(b, nil).Run(ctx)
		if err != nil {
			errs.Report(s.log, "freespins", err)
		}
		return win
	}
	if s.env.Bonuses != nil {
		win, err := s.env.Bonuses.RunBonus(ctx, b)
		if err != nil {
			errs.Report(s.log, "bonus", errs.WrapWithExtra(err, "bonus runner failed", b.Name))
		}
		return win
	}
	return bonusWin(b)
}

// bonusWin 沒有 BonusRunner 時的 bonus 贏分：節點自身的 win_amount，沒有時加總它的子結果。
// spin 本身宣告的 bonus 子結果已算進 base 贏分。
func bonusWin(b *outcome.Bonus) int64 {
	if w, ok := b.Node.OwnWin(); ok {
		return w
	}
	if b.OnSpin {
		return 0
	}
	return b.Node.SubWin()
}

func (s *Session) record(b *outcome.Bonus, win int64) {
	s.report.Bonuses = append(s.report.Bonuses, BonusRecord{Category: b.Category.String(), Name: b.Name, Win: win})
}

// ============================================================
// ** Rollup **
// ============================================================

func (s *Session) rollup(ctx context.Context) (State, error) {
	win := s.pendingWin
	s.pendingWin = 0
	s.rollupNow(ctx, win)
	s.maybeBigWin(ctx)
	if s.fs == nil && s.deferredFreespins == nil {
		s.fold(ctx)
	}
	s.basePaid = true
	return StateContinueWhenReady, nil
}

// rollupNow 逐 tick 滾分；急停或 ctx 取消時剩餘金額一次滾完
func (s *Session) rollupNow(ctx context.Context, amount int64) {
	if amount <= 0 {
		return
	}
	ticks := max(int64(s.settings.Rollup()/s.settings.RollupTick()), 1)
	var done int64
	for i := int64(1); i <= ticks; i++ {
		target := amount * i / ticks
		if s.env.Surface.SlamStopPressed() || ctx.Err() != nil {
			target = amount
		}
		s.ledger.Rollup(target - done)
		done = target
		s.env.Display.RollupTick(s.ledger.Running())
		if done == amount {
			return
		}
		s.sleep(ctx, s.settings.RollupTick())
	}
}

// maybeBigWin 本輪增量超過門檻且沒有模組暫緩時演出大獎，每輪最多一次
func (s *Session) maybeBigWin(ctx context.Context) {
	if s.bigWinShown {
		return
	}
	inc := s.ledger.Running() - s.runningAtStart
	limit := s.settings.BigWinThreshold.Mul(decimal.NewFromInt(s.wager))
	if !decimal.NewFromInt(inc).GreaterThan(limit) {
		return
	}
	if claims(s.env.Hooks, func(c BigWinDeferrer) bool { return c.DefersBigWin(s) }) {
		return
	}
	if len(s.reevalQueue) > 0 && !isTumble(s.strategy) {
		return
	}
	s.showBigWin(ctx, inc)
}

func (s *Session) showBigWin(ctx context.Context, amount int64) {
	s.bigWinShown = true
	s.report.BigWin = amount
	s.runHooks(ctx, HookPreBigWin)
	if err := s.env.Display.BigWin(ctx, amount); err != nil {
		errs.Report(s.log, "big win", errs.Wrap(err, "display"))
	}
	s.runHooks(ctx, HookPostBigWin)
}

// fold 確認滾分並實際入帳；重複呼叫不會重複入帳
func (s *Session) fold(ctx context.Context) {
	d := s.ledger.Fold()
	if d <= 0 {
		return
	}
	if err := s.env.Sink.Credit(ctx, d); err != nil {
		errs.Report(s.log, "credit", errs.Wrap(err, "sink"))
	}
	s.report.Win += d
}

// ============================================================
// ** ContinueWhenReady **
// ============================================================

func (s *Session) continueWhenReady(ctx context.Context) (State, error) {
	// (a) 餘額不足以支付下一輪
	if s.fs == nil && !s.coinsChecked {
		s.coinsChecked = true
		if bal, err := s.env.Sink.Balance(ctx); err != nil {
			errs.Report(s.log, "balance", errs.Wrap(err, "sink"))
		} else if bal < s.wager {
			s.env.Display.OutOfCoins()
			s.autoSpinsRemaining = 0
		}
	}
	// (b) 佇列中還有 bonus
	if s.promote(s.bonusSrc) || s.promote(s.outcome) {
		return StateBonusDispatch, nil
	}
	// (c) base game 內的免費遊戲
	if b := s.deferredFreespins; b != nil {
		s.deferredFreespins = nil
		f := s.newFreespins(b, s.ledger)
		s.activeFS = f
		if _, err := f.Run(ctx); err != nil {
			errs.Report(s.log, "freespins", err)
		}
		return StateContinueWhenReady, nil
	}
	// (d) 先派彩後進 bonus
	if s.executingAfterPayout {
		return StateBonusDispatch, nil
	}
	// (e) spin 之間的模組
	if s.hookPasses < maxHookPasses {
		s.hookPasses++
		if s.runHooks(ctx, HookBetweenSpins) > 0 {
			return StateContinueWhenReady, nil
		}
	}
	// (f) 解鎖前強制大獎
	if !s.bigWinShown {
		if amount, ok := s.forcedBigWin(); ok {
			s.showBigWin(ctx, amount)
			return StateContinueWhenReady, nil
		}
	}
	// (g) 還有 reevaluation spin
	if len(s.reevalQueue) > 0 {
		return StateReevaluationLoop, nil
	}
	// (h) 序列中還有免費遊戲
	if s.fs != nil && s.fs.hasNext() {
		s.next = NextFreespin
		s.complete = true
		return StateIdle, nil
	}
	// (i) base game 內的免費遊戲尚未結束，由它自己解鎖
	if s.activeFS != nil && !s.activeFS.Done() {
		return StateIdle, nil
	}
	s.complete = true
	if s.autoSpinsRemaining > 0 {
		s.next = NextAutoSpin
	}
	return StateIdle, nil
}

// forcedBigWin 第一個要求強制大獎的模組；panic 視為不要求
func (s *Session) forcedBigWin() (amount int64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			amount, ok = 0, false
		}
	}()
	for _, h := range s.env.Hooks {
		if bf, is := h.(BigWinForcer); is {
			if amount, ok = bf.ForceBigWin(s); ok {
				return amount, ok
			}
		}
	}
	return 0, false
}
