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

package session_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zintix-labs/spinflow/catalog"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/headless"
	"github.com/zintix-labs/spinflow/sdk/cascade"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/spec"
)

const baseYAML = `
game_name: test_lines
game_id: 7
bet_units: [10, 20]
layout:
  columns: 3
  rows: 3
  linked: [[1, 2]]
symbols:
  names: [H1, H2, L1, L2, W1, C1]
reel_sets:
  base:
    weight: 1
    reels:
      - symbols: [H1, H2, L1, L2, W1, C1]
      - symbols: [L1, H2, H1, L2, C1, W1]
      - symbols: [H2, H1, L2, L1, W1, C1]
paylines:
  - [1, 1, 1]
  - [0, 0, 0]
bonus_catalog:
  gifting:
    freespin_x: {display: inline, giftable: true}
  challenge:
    pick_a: {display: screen}
    pick_b: {display: screen}
  credit:
    coins: {display: none}
  excluded: [com_common]
`

// ============================================================
// ** fakes **
// ============================================================

type scripted struct {
	docs  []map[string]any
	calls atomic.Int32
	block bool
}

func (s *scripted) Fetch(ctx context.Context, req session.SpinRequest) (map[string]any, error) {
	n := int(s.calls.Add(1)) - 1
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n >= len(s.docs) {
		return nil, errors.New("no more outcomes")
	}
	return s.docs[n], nil
}

type forced map[string]map[string]any

func (f forced) Forced(ctx context.Context, key string) (map[string]any, error) {
	d, ok := f[key]
	if !ok {
		return nil, errs.Config("unknown forced key %s", key)
	}
	return d, nil
}

type recRunner struct {
	names []string
}

func (r *recRunner) RunBonus(ctx context.Context, b *outcome.Bonus) (int64, error) {
	r.names = append(r.names, b.Name)
	return b.Node.WinAmount(), nil
}

type countingSink struct {
	*headless.Wallet
	credits int
}

func (c *countingSink) Credit(ctx context.Context, amount int64) error {
	c.credits++
	return c.Wallet.Credit(ctx, amount)
}

type hookFunc struct {
	point session.HookPoint
	need  func(*session.Session) bool
	run   func(*session.Session) error
}

func (h *hookFunc) NeedsToRun(p session.HookPoint, s *session.Session) bool {
	if p != h.point {
		return false
	}
	if h.need == nil {
		return true
	}
	return h.need(s)
}

func (h *hookFunc) Run(ctx context.Context, p session.HookPoint, s *session.Session) error {
	if h.run == nil {
		return nil
	}
	return h.run(s)
}

type deferBigWin struct{}

func (deferBigWin) NeedsToRun(session.HookPoint, *session.Session) bool { return false }
func (deferBigWin) Run(context.Context, session.HookPoint, *session.Session) error {
	return nil
}
func (deferBigWin) DefersBigWin(*session.Session) bool { return true }

type rigCfg struct {
	session string
	docs    []string
	forced  map[string]string
	hooks   []session.Hook
	balance int64
	clock   session.Clock
	block   bool
}

type rig struct {
	s         *session.Session
	src       *scripted
	surface   *headless.Surface
	sink      *countingSink
	display   *headless.Display
	refresher *headless.Refresher
	runner    *recRunner
}

func mustDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	d, err := outcome.ParseDoc([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return d
}

func newRig(t *testing.T, cfg rigCfg) *rig {
	t.Helper()
	yml := baseYAML
	if cfg.session != "" {
		yml += "session:\n" + cfg.session
	}
	cat, err := catalog.New(fstest.MapFS{"test.yaml": &fstest.MapFile{Data: []byte(yml)}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := cat.Register(catalog.Entry{GID: 7, Name: "test", ConfigName: "test.yaml"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	gs, err := cat.Game(7)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if cfg.balance == 0 {
		cfg.balance = 1000
	}
	r := &rig{
		src:       &scripted{block: cfg.block},
		surface:   headless.NewSurface(gs),
		sink:      &countingSink{Wallet: headless.NewWallet(cfg.balance)},
		display:   &headless.Display{},
		refresher: &headless.Refresher{},
		runner:    &recRunner{},
	}
	for _, d := range cfg.docs {
		r.src.docs = append(r.src.docs, mustDoc(t, d))
	}
	clock := cfg.clock
	if clock == nil {
		clock = headless.Clock{Cutoff: gs.Session.OutcomeTimeout()}
	}
	env := session.Env{
		Source:    r.src,
		Catalog:   cat,
		Surface:   r.surface,
		Sink:      r.sink,
		Display:   r.display,
		Hooks:     cfg.hooks,
		Bonuses:   r.runner,
		Refresher: r.refresher,
		Clock:     clock,
	}
	if cfg.forced != nil {
		f := forced{}
		for k, v := range cfg.forced {
			f[k] = mustDoc(t, v)
		}
		env.Forced = f
	}
	if r.s, err = session.New(7, env); err != nil {
		t.Fatalf("session: %v", err)
	}
	return r
}

func count(trace []session.State, st session.State) int {
	n := 0
	for _, s := range trace {
		if s == st {
			n++
		}
	}
	return n
}

func spin(t *testing.T, r *rig) *session.Report {
	t.Helper()
	rep, err := r.s.SubmitSpin(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	return rep
}

// ============================================================
// ** 端到端情境 **
// ============================================================

func TestEmptyOutcomeCompletesWithoutBonus(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"outcomes":[],"bonus":false,"reel_stops":[0,1,2]}`}})
	rep := spin(t, r)

	if !r.s.IsSpinComplete() || !rep.Complete {
		t.Fatalf("spin not complete")
	}
	want := []session.State{
		session.StatePrespin,
		session.StateAwaitingOutcome,
		session.StateReelsSettling,
		session.StateRollup,
		session.StateContinueWhenReady,
	}
	got := r.s.Trace()
	if len(got) != len(want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if r.s.RunningPayout() != 0 || rep.Win != 0 {
		t.Fatalf("expected zero rollup, got running=%d win=%d", r.s.RunningPayout(), rep.Win)
	}
	if r.s.CurrentOutcome().IsBonus() || len(r.runner.names) != 0 {
		t.Fatalf("unexpected bonus dispatch")
	}
	if deb, _ := r.sink.Totals(); deb != 10 {
		t.Fatalf("debited = %d, want 10", deb)
	}
}

func TestSingleReevaluationAddsOnePass(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{
		`{"reel_stops":[0,0,0],"reevaluations":[{"reevaluated_stops":[3,5,1],"win_amount":20}]}`,
	}})
	rep := spin(t, r)

	tr := r.s.Trace()
	if n := count(tr, session.StateReevaluationLoop); n != 1 {
		t.Fatalf("reevaluation passes = %d, want 1 (trace %v)", n, tr)
	}
	if tr[3] != session.StateReevaluationLoop || tr[4] != session.StateRollup {
		t.Fatalf("reevaluation must lead straight to rollup, trace %v", tr)
	}
	if rep.Reevaluations != 1 || r.surface.Stops != 2 {
		t.Fatalf("reevaluations=%d stops=%d", rep.Reevaluations, r.surface.Stops)
	}
	if rep.Win != 20 || !r.s.Ledger().Reconciled() {
		t.Fatalf("win=%d ledger=%+v", rep.Win, r.s.Ledger())
	}
}

const freespinsDoc = `{"reel_stops":[0,0,0],"outcomes":[
	{"outcome_type":"line_win","win_amount":30},
	{"outcome_type":"bonus_game","bonus_game":"freespin_x","free_spins":[
		{"reel_stops":[1,1,1],"win_amount":5},
		{"reel_stops":[2,2,2],"win_amount":7}
	]}
]}`

func TestFreespinsInBaseShareLedger(t *testing.T) {
	var gifting bool
	var childRunning []int64
	var base *session.Session
	sameLedger := true
	hooks := []session.Hook{
		&hookFunc{point: session.HookPreBonusCreation, run: func(s *session.Session) error {
			gifting = s.CurrentOutcome().IsGifting()
			return nil
		}},
		&hookFunc{point: session.HookPreSpin, need: (*session.Session).InFreespins, run: func(s *session.Session) error {
			childRunning = append(childRunning, s.RunningPayout())
			sameLedger = sameLedger && s.Ledger() == base.Ledger()
			return nil
		}},
	}
	r := newRig(t, rigCfg{
		session: "  play_freespins_in_basegame: true\n",
		docs:    []string{freespinsDoc},
		hooks:   hooks,
	})
	base = r.s
	rep := spin(t, r)

	if !gifting {
		t.Fatalf("expected gifting classification")
	}
	if !sameLedger || len(childRunning) != 2 {
		t.Fatalf("freespins must share the base ledger, runs=%v", childRunning)
	}
	if childRunning[0] != 30 {
		t.Fatalf("base ledger zeroed before freespins: running=%d", childRunning[0])
	}
	if rep.Freespins != 2 || rep.Win != 42 || r.sink.credits != 1 {
		t.Fatalf("freespins=%d win=%d credits=%d", rep.Freespins, rep.Win, r.sink.credits)
	}
	if fs := r.s.Freespins(); fs == nil || !fs.Shared() || !fs.Done() {
		t.Fatalf("freespin run state = %+v", fs)
	}
	if !r.s.Ledger().Reconciled() || !r.s.IsSpinComplete() {
		t.Fatalf("ledger not reconciled after freespins")
	}
}

func TestPayBaseBeforeFreespinsZeroesLedger(t *testing.T) {
	var childRunning []int64
	hooks := []session.Hook{
		&hookFunc{point: session.HookPreSpin, need: (*session.Session).InFreespins, run: func(s *session.Session) error {
			childRunning = append(childRunning, s.RunningPayout())
			return nil
		}},
	}
	r := newRig(t, rigCfg{
		session: "  play_freespins_in_basegame: true\n  pay_base_before_freespins: true\n",
		docs:    []string{freespinsDoc},
		hooks:   hooks,
	})
	rep := spin(t, r)

	if len(childRunning) == 0 || childRunning[0] != 0 {
		t.Fatalf("ledger must be zeroed before freespins, got %v", childRunning)
	}
	if rep.Win != 42 || r.sink.credits != 2 {
		t.Fatalf("win=%d credits=%d", rep.Win, r.sink.credits)
	}
}

func TestQueuedBonusesServicedInOrder(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"reevaluations":[{"bonus_games":[
		{"outcome_type":"bonus_game","bonus_game":"pick_a","win_amount":11},
		{"outcome_type":"bonus_game","bonus_game":"pick_b","win_amount":13}
	]}]}`}})
	rep := spin(t, r)

	if len(r.runner.names) != 2 || r.runner.names[0] != "pick_a" || r.runner.names[1] != "pick_b" {
		t.Fatalf("bonus order = %v", r.runner.names)
	}
	if n := count(r.s.Trace(), session.StateBonusDispatch); n != 2 {
		t.Fatalf("bonus dispatches = %d, want 2", n)
	}
	if r.src.calls.Load() != 1 {
		t.Fatalf("second bonus must not need a new request, calls=%d", r.src.calls.Load())
	}
	if rep.Win != 24 || r.s.CurrentOutcome().HasQueuedBonuses() {
		t.Fatalf("win=%d queued=%v", rep.Win, r.s.CurrentOutcome().HasQueuedBonuses())
	}
}

// spin 本身宣告 bonus：自身的 win_amount / credits 屬於 bonus，子結果屬於 base
const rootFreespinsDoc = `{"reel_stops":[0,0,0],"outcome_type":"bonus_game","bonus_game":"freespin_x",
	"free_spins":[
		{"reel_stops":[1,1,1],"win_amount":5},
		{"reel_stops":[2,2,2],"win_amount":7}
	],
	"outcomes":[{"outcome_type":"line_win","win_amount":30}]}`

func TestRootCreditBonusPaidOnce(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{
		`{"reel_stops":[0,0,0],"outcome_type":"bonus_game","bonus_game":"coins","credits":5}`,
		`{"reel_stops":[0,0,0],"outcome_type":"bonus_game","bonus_game":"coins","credits":5,
			"outcomes":[{"outcome_type":"line_win","win_amount":30}]}`,
	}})
	rep, err := r.s.SubmitSpin(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if rep.Win != 15 || r.sink.credits != 1 {
		t.Fatalf("win=%d credits=%d", rep.Win, r.sink.credits)
	}
	if len(rep.Bonuses) != 1 || rep.Bonuses[0].Category != "credit" || rep.Bonuses[0].Win != 15 {
		t.Fatalf("bonuses = %+v", rep.Bonuses)
	}

	rep, err = r.s.SubmitSpin(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if rep.Win != 45 || r.sink.credits != 2 {
		t.Fatalf("base + credit: win=%d credits=%d", rep.Win, r.sink.credits)
	}
	if _, credited := r.sink.Totals(); credited != 60 {
		t.Fatalf("credited %d, want 60", credited)
	}
}

func TestRootChallengeBonusSeparatesBaseWin(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"outcome_type":"bonus_game","bonus_game":"pick_a","win_amount":11,
		"outcomes":[{"outcome_type":"line_win","win_amount":30}]}`}})
	rep := spin(t, r)

	if len(r.runner.names) != 1 || r.runner.names[0] != "pick_a" {
		t.Fatalf("runner calls = %v", r.runner.names)
	}
	if rep.Win != 41 || r.sink.credits != 1 {
		t.Fatalf("win=%d credits=%d", rep.Win, r.sink.credits)
	}
	if _, credited := r.sink.Totals(); credited != 41 {
		t.Fatalf("credited %d, want 41", credited)
	}
	if len(rep.Bonuses) != 1 || rep.Bonuses[0].Win != 11 {
		t.Fatalf("bonuses = %+v", rep.Bonuses)
	}
}

func TestRootFreespinsInBase(t *testing.T) {
	r := newRig(t, rigCfg{
		session: "  play_freespins_in_basegame: true\n",
		docs:    []string{rootFreespinsDoc},
	})
	rep := spin(t, r)

	if rep.Freespins != 2 || rep.Win != 42 || r.sink.credits != 1 {
		t.Fatalf("freespins=%d win=%d credits=%d", rep.Freespins, rep.Win, r.sink.credits)
	}
	if _, credited := r.sink.Totals(); credited != 42 {
		t.Fatalf("credited %d, want 42", credited)
	}
	if !r.s.Ledger().Reconciled() || !r.s.IsSpinComplete() {
		t.Fatalf("ledger not reconciled after freespins")
	}
}

func TestRootFreespinsWithoutStream(t *testing.T) {
	doc := `{"reel_stops":[0,0,0],"bonus_game":"freespin_x","outcomes":[{"outcome_type":"line_win","win_amount":30}]}`
	for _, cfg := range []string{"  play_freespins_in_basegame: true\n", ""} {
		r := newRig(t, rigCfg{session: cfg, docs: []string{doc}})
		rep := spin(t, r)

		if rep.Freespins != 0 || rep.Win != 30 || r.sink.credits != 1 {
			t.Fatalf("session %q: freespins=%d win=%d credits=%d", cfg, rep.Freespins, rep.Win, r.sink.credits)
		}
		if _, credited := r.sink.Totals(); credited != 30 {
			t.Fatalf("session %q: credited %d, want 30", cfg, credited)
		}
		if len(r.runner.names) != 0 {
			t.Fatalf("session %q: gifting must not reach the bonus runner, got %v", cfg, r.runner.names)
		}
		if !r.s.Ledger().Reconciled() {
			t.Fatalf("session %q: ledger = %+v", cfg, r.s.Ledger())
		}
	}
}

func TestRootDedicatedFreespins(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{rootFreespinsDoc}})
	rep := spin(t, r)

	if rep.Freespins != 2 || rep.Win != 42 || r.sink.credits != 1 {
		t.Fatalf("freespins=%d win=%d credits=%d", rep.Freespins, rep.Win, r.sink.credits)
	}
	if fs := r.s.Freespins(); fs != nil && fs.Shared() {
		t.Fatalf("dedicated freespins must not share the base ledger")
	}
	if len(rep.Bonuses) != 1 || rep.Bonuses[0].Win != 12 {
		t.Fatalf("bonuses = %+v", rep.Bonuses)
	}
}

// ============================================================
// ** 故障 **
// ============================================================

func TestOutcomeTimeoutIsFatal(t *testing.T) {
	r := newRig(t, rigCfg{block: true, clock: headless.Clock{}})
	_, err := r.s.SubmitSpin(context.Background(), 10, 1)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if errs.KindOf(err) != errs.KindProtocol || !errs.IsFatal(err) {
		t.Fatalf("err = %v, want fatal protocol fault", err)
	}
	if r.refresher.Count != 1 {
		t.Fatalf("refresh count = %d, want 1", r.refresher.Count)
	}
	if r.src.calls.Load() > 1 {
		t.Fatalf("request retried %d times", r.src.calls.Load())
	}
	if r.s.IsSpinComplete() || r.s.State() != session.StateIdle {
		t.Fatalf("complete=%v state=%s", r.s.IsSpinComplete(), r.s.State())
	}
}

func TestInsufficientBalanceSendsNoRequest(t *testing.T) {
	r := newRig(t, rigCfg{balance: 5, docs: []string{`{"reel_stops":[0,0,0]}`}})
	_, err := r.s.SubmitSpin(context.Background(), 10, 1)
	if errs.KindOf(err) != errs.KindPlayer {
		t.Fatalf("err = %v, want player fault", err)
	}
	if r.src.calls.Load() != 0 {
		t.Fatalf("request sent despite insufficient balance")
	}
	if r.display.Broke != 1 {
		t.Fatalf("out of coins shown %d times", r.display.Broke)
	}
}

func TestHookFaultsDoNotAbortSpin(t *testing.T) {
	hooks := []session.Hook{
		&hookFunc{point: session.HookPreSpin, need: func(*session.Session) bool { panic("boom") }},
		&hookFunc{point: session.HookPostReelStop, run: func(*session.Session) error { return errors.New("hook failed") }},
		&hookFunc{point: session.HookPostPaylineDisplay, run: func(*session.Session) error { panic("boom") }},
	}
	r := newRig(t, rigCfg{hooks: hooks, docs: []string{`{"reel_stops":[0,0,0],"win_amount":15}`}})
	rep := spin(t, r)
	if !rep.Complete || rep.Win != 15 {
		t.Fatalf("complete=%v win=%d", rep.Complete, rep.Win)
	}
}

func TestInvalidOverrideSkipped(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"override_symbols":[
		{"reel":0,"position":1,"reel_strip_index":2,"from_symbol":"L1","to_symbol":"W1"},
		{"reel":1,"position":1,"reel_strip_index":2,"from_symbol":"L1"}
	]}`}})
	spin(t, r)
	if len(r.surface.Applied) != 1 || r.surface.Applied[0].Reel != 0 {
		t.Fatalf("applied = %v", r.surface.Applied)
	}
	if g := r.surface.Snapshot(0); g.At(0, 1) != 5 {
		t.Fatalf("override not applied, cell=%d", g.At(0, 1))
	}
}

// ============================================================
// ** 帳本 **
// ============================================================

func TestLedgerReconciledAtEverySpinStart(t *testing.T) {
	docs := []string{
		`{"reel_stops":[0,0,0],"win_amount":10}`,
		`{"reel_stops":[1,1,1],"reevaluations":[{"reevaluated_stops":[2,2,2],"win_amount":5}]}`,
		`{"reel_stops":[2,2,2],"outcomes":[{"outcome_type":"bonus_game","bonus_game":"coins","credits":4}]}`,
		`{"reel_stops":[3,3,3]}`,
		`{"reel_stops":[4,4,4],"outcomes":[{"outcome_type":"bonus_game","bonus_game":"pick_a","win_amount":9}]}`,
	}
	r := newRig(t, rigCfg{docs: docs})
	var total int64
	for i := range docs {
		if !r.s.Ledger().Reconciled() {
			t.Fatalf("spin %d starts unreconciled: %+v", i, r.s.Ledger())
		}
		total += spin(t, r).Win
	}
	if _, credited := r.sink.Totals(); credited != total || total != 28 {
		t.Fatalf("credited=%d total=%d", credited, total)
	}
}

func TestRollupFoldIsIdempotent(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"win_amount":40}`}})
	spin(t, r)
	paid := r.s.Ledger().Paid()
	_, credited := r.sink.Totals()

	if err := r.s.ResumeAt(context.Background(), session.StateRollup); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if r.s.Ledger().Paid() != paid {
		t.Fatalf("paid changed %d -> %d", paid, r.s.Ledger().Paid())
	}
	if _, again := r.sink.Totals(); again != credited {
		t.Fatalf("credited twice: %d -> %d", credited, again)
	}
}

func TestCreditBonusUsesMultiplier(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"outcomes":[{"outcome_type":"bonus_game","bonus_game":"coins","credits":5}]}`}})
	rep, err := r.s.SubmitSpin(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if rep.Win != 15 || len(rep.Bonuses) != 1 || rep.Bonuses[0].Category != "credit" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestPayBaseBeforeBonus(t *testing.T) {
	r := newRig(t, rigCfg{
		session: "  pay_base_before_bonus: true\n",
		docs: []string{`{"reel_stops":[0,0,0],"outcomes":[
			{"outcome_type":"line_win","win_amount":10},
			{"outcome_type":"bonus_game","bonus_game":"pick_a","win_amount":11}
		]}`},
	})
	rep := spin(t, r)

	tr := r.s.Trace()
	first := -1
	for i, st := range tr {
		if st == session.StateBonusDispatch {
			first = i
			break
		}
	}
	if first < 0 || tr[first+1] != session.StateRollup {
		t.Fatalf("base must roll up before the bonus, trace %v", tr)
	}
	if count(tr, session.StateBonusDispatch) != 2 || r.sink.credits != 2 || rep.Win != 21 {
		t.Fatalf("dispatch=%d credits=%d win=%d", count(tr, session.StateBonusDispatch), r.sink.credits, rep.Win)
	}
}

func TestBigWinThresholdAndDeferral(t *testing.T) {
	doc := `{"reel_stops":[0,0,0],"win_amount":200}`
	r := newRig(t, rigCfg{docs: []string{doc}})
	rep := spin(t, r)
	if len(r.display.BigWins) != 1 || rep.BigWin != 200 {
		t.Fatalf("big wins = %v", r.display.BigWins)
	}

	r = newRig(t, rigCfg{docs: []string{doc}, hooks: []session.Hook{deferBigWin{}}})
	spin(t, r)
	if len(r.display.BigWins) != 0 {
		t.Fatalf("deferred big win still shown")
	}

	r = newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"win_amount":150}`}})
	spin(t, r)
	if len(r.display.BigWins) != 0 {
		t.Fatalf("threshold must be exceeded, not reached")
	}
}

// ============================================================
// ** free spins / tumble **
// ============================================================

func TestDedicatedFreespinsCounter(t *testing.T) {
	stream := `"free_spins":[{"reel_stops":[1,1,1],"win_amount":1},{"reel_stops":[2,2,2],"win_amount":2},{"reel_stops":[3,3,3],"win_amount":4}]`
	r := newRig(t, rigCfg{docs: []string{
		`{"reel_stops":[0,0,0],"outcomes":[{"outcome_type":"bonus_game","bonus_game":"freespin_x",` + stream + `}]}`,
		`{"reel_stops":[0,0,0],"outcomes":[{"outcome_type":"bonus_game","bonus_game":"freespin_x","spin_count":2,` + stream + `}]}`,
	}})

	rep := spin(t, r)
	if rep.Freespins != 3 || rep.Win != 7 {
		t.Fatalf("infinite counter: freespins=%d win=%d", rep.Freespins, rep.Win)
	}
	rep = spin(t, r)
	if rep.Freespins != 2 || rep.Win != 3 {
		t.Fatalf("finite counter: freespins=%d win=%d", rep.Freespins, rep.Win)
	}
}

func TestTumbleFoldsOnce(t *testing.T) {
	r := newRig(t, rigCfg{
		session: "  tumble: true\n",
		docs: []string{`{"reel_stops":[0,0,0],
			"outcomes":[{"outcome_type":"cluster_win","win_amount":10,"positions":[0,1,2]}],
			"reevaluations":[
				{"reevaluated_stops":[1,1,1],"outcomes":[{"outcome_type":"cluster_win","win_amount":20,"positions":[3,4]}]},
				{"reevaluated_stops":[2,2,2],"win_amount":5}
			]}`},
	})
	rep := spin(t, r)

	if n := count(r.s.Trace(), session.StateReevaluationLoop); n != 2 {
		t.Fatalf("cascade steps = %d, want 2", n)
	}
	if r.sink.credits != 1 || rep.Win != 35 {
		t.Fatalf("credits=%d win=%d", r.sink.credits, rep.Win)
	}
	if r.s.RunningPayout() != 35 || !r.s.Ledger().Reconciled() {
		t.Fatalf("ledger = %+v", r.s.Ledger())
	}
	if after := r.surface.Snapshot(0); after.Empty() != 0 {
		t.Fatalf("cascade left holes: %v", r.surface.Snapshot(0).Cells)
	}
}

// cascadeRig 停輪後把盤面換成 grid，讓消除位置可以預先算出
func cascadeRig(t *testing.T, mode string, grid []int16, wins string) *rig {
	t.Helper()
	var r *rig
	hooks := []session.Hook{&hookFunc{point: session.HookPostReelStop, run: func(*session.Session) error {
		r.surface.SetSnapshot(0, cascade.Grid{Cols: 3, Rows: 3, Cells: grid})
		return nil
	}}}
	r = newRig(t, rigCfg{
		session: "  tumble: true\n  tumble_win: " + mode + "\n",
		hooks:   hooks,
		docs: []string{`{"reel_stops":[0,0,0],"outcomes":` + wins + `,
			"reevaluations":[{"reevaluated_stops":[1,1,1],"win_amount":2}]}`},
	})
	return r
}

func assertRemoved(t *testing.T, r *rig, want []int16) {
	t.Helper()
	if len(r.surface.Removed) != 1 {
		t.Fatalf("cascade steps applied = %d, want 1", len(r.surface.Removed))
	}
	if got := r.surface.Removed[0]; !slices.Equal(got, want) {
		t.Fatalf("removed %v, want %v", got, want)
	}
	if after := r.surface.Snapshot(0); after.Empty() != 0 {
		t.Fatalf("cascade left holes: %v", after.Cells)
	}
}

// H1=1 H2=2 L1=3 L2=4 W1=5 C1=6，row-major
func TestTumbleClusterBySymbol(t *testing.T) {
	grid := []int16{
		1, 1, 3,
		1, 5, 4,
		1, 4, 6,
	}
	r := cascadeRig(t, "cluster", grid, `[{"outcome_type":"cluster_win","symbol":"H1","win_amount":10}]`)
	rep := spin(t, r)

	assertRemoved(t, r, []int16{0, 1, 3, 4, 6})
	if rep.Win != 12 || r.sink.credits != 1 {
		t.Fatalf("win=%d credits=%d", rep.Win, r.sink.credits)
	}
}

func TestTumbleClusterBelowMinSize(t *testing.T) {
	grid := []int16{
		1, 1, 3,
		2, 3, 4,
		1, 4, 6,
	}
	r := cascadeRig(t, "cluster", grid, `[{"outcome_type":"cluster_win","symbol":"H1","win_amount":10}]`)
	spin(t, r)
	if len(r.surface.Removed) != 0 {
		t.Fatalf("cluster under min size removed %v", r.surface.Removed)
	}
}

func TestTumbleScatterBySymbol(t *testing.T) {
	grid := []int16{
		1, 2, 6,
		3, 6, 4,
		6, 1, 2,
	}
	r := cascadeRig(t, "scatter", grid, `[{"outcome_type":"scatter_win","symbol":"C1","win_amount":10}]`)
	spin(t, r)
	assertRemoved(t, r, []int16{2, 4, 6})
}

func TestTumblePaylineByLine(t *testing.T) {
	grid := []int16{
		1, 1, 3,
		2, 2, 2,
		4, 3, 1,
	}
	r := cascadeRig(t, "payline", grid, `[
		{"outcome_type":"line_win","line":1,"count":2,"win_amount":4},
		{"outcome_type":"line_win","line":0,"count":3,"win_amount":6}
	]`)
	rep := spin(t, r)

	assertRemoved(t, r, []int16{0, 1, 3, 4, 5})
	if rep.Win != 12 {
		t.Fatalf("win=%d", rep.Win)
	}
}

// ============================================================
// ** 停輪時序 **
// ============================================================

func TestStopOrderLinkedAndUnknown(t *testing.T) {
	r := newRig(t, rigCfg{docs: []string{`{"reel_stops":[0,0,0],"anticipation_info":{"triggers":[0]}}`}})
	spin(t, r)

	if r.s.StopOrderFor(0, 0, 0) != 0 {
		t.Fatalf("reel 0 must stop first")
	}
	if a, b := r.s.StopOrderFor(1, 0, 0), r.s.StopOrderFor(2, 2, 0); a != b || a != 1 {
		t.Fatalf("linked reels got %d and %d", a, b)
	}
	if r.s.StopOrderFor(9, 0, 0) != -1 {
		t.Fatalf("unknown position must return -1")
	}
	order := r.surface.Orders[0]
	if len(order.Delays) != 2 || order.Delays[0] != 0 || order.Delays[1] != 800*time.Millisecond {
		t.Fatalf("anticipation delays = %v", order.Delays)
	}
}

func TestIndependentStopOrder(t *testing.T) {
	r := newRig(t, rigCfg{session: "  stop_order: independent\n", docs: []string{`{"reel_stops":[0,0,0]}`}})
	spin(t, r)
	if r.s.StopOrderFor(0, 2, 0) != 2 || r.s.StopOrderFor(1, 0, 0) != 3 {
		t.Fatalf("independent order = %d %d", r.s.StopOrderFor(0, 2, 0), r.s.StopOrderFor(1, 0, 0))
	}
}

func TestLinkedGroupsMergeTransitively(t *testing.T) {
	layout := &spec.LayoutSetting{Columns: 6, Rows: 1, Layers: 1, Linked: [][]int{{3, 4}, {0, 3}}}
	order := session.Standard{}.StopOrder(layout, nil, 0)
	want := map[int]int{0: 0, 3: 0, 4: 0, 1: 1, 2: 2, 5: 3}
	for reel, group := range want {
		if got, ok := order.IndexOf(reel, 0, 0); !ok || got != group {
			t.Fatalf("reel %d in group %d, want %d", reel, got, group)
		}
	}
	if len(order.Groups) != 4 {
		t.Fatalf("groups = %v", order.Groups)
	}

	n, err := outcome.Parse([]byte(`{"linked_reels":[[2,5]]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	layout.Linked = [][]int{{4, 5}, {1, 2}, {3, 4}}
	order = session.Standard{}.StopOrder(layout, n, 0)
	if len(order.Groups) != 2 {
		t.Fatalf("chained links must collapse to two groups, got %v", order.Groups)
	}
	for reel := 1; reel < 6; reel++ {
		if got, _ := order.IndexOf(reel, 0, 0); got != 1 {
			t.Fatalf("reel %d in group %d, want 1", reel, got)
		}
	}
}

// ============================================================
// ** 其他入口 **
// ============================================================

func TestForcedOutcomeRunsAllStages(t *testing.T) {
	r := newRig(t, rigCfg{forced: map[string]string{"win": `{"reel_stops":[0,0,0],"win_amount":25}`}})
	rep, err := r.s.SubmitForcedOutcome(context.Background(), "win")
	if err != nil {
		t.Fatalf("forced: %v", err)
	}
	if r.src.calls.Load() != 0 {
		t.Fatalf("forced outcome must not hit the result source")
	}
	if tr := r.s.Trace(); tr[0] != session.StatePrespin || count(tr, session.StateReelsSettling) != 1 {
		t.Fatalf("trace = %v", tr)
	}
	if rep.Win != 25 || rep.Wager != 10 {
		t.Fatalf("report = %+v", rep)
	}
	if _, err := r.s.SubmitForcedOutcome(context.Background(), "missing"); errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("missing key err = %v", err)
	}
}

func TestAutoSpinStopsWhenOutOfCoins(t *testing.T) {
	r := newRig(t, rigCfg{balance: 25, docs: []string{
		`{"reel_stops":[0,0,0]}`,
		`{"reel_stops":[1,1,1]}`,
		`{"reel_stops":[2,2,2]}`,
	}})
	reps, err := r.s.SubmitAutoSpin(context.Background(), 10, 1, 3)
	if err != nil {
		t.Fatalf("auto spin: %v", err)
	}
	if len(reps) != 2 || r.display.Broke != 1 {
		t.Fatalf("spins=%d broke=%d", len(reps), r.display.Broke)
	}
}
