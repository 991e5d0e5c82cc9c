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

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/ledger"
	"github.com/zintix-labs/spinflow/sdk/outcome"
)

// Freespins 一段免費遊戲序列。
//
// 每一輪都是一次從 Prespin 到 ContinueWhenReady 的 spin，結果依序取自預先拿到的 stream，
// 不再對結果來源發請求也不扣注。remaining 為 -1 時不限次數，以 stream 長度為界。
//
// 與 base game 共用帳本時（base game 內進行），整段序列結束才對帳一次並入帳；
// 獨立帳本時贏分回傳給呼叫端當作 bonus 贏分。
type Freespins struct {
	parent    *Session
	bonus     *outcome.Bonus
	stream    []map[string]any
	remaining int
	played    int
	ledger    *ledger.Ledger
	shared    bool
	done      bool
	child     *Session
}

// newFreespins shared 非 nil 時與 base game 共用帳本
func (s *Session) newFreespins(b *outcome.Bonus, shared *ledger.Ledger) *Freespins {
	f := &Freespins{
		parent:    s,
		bonus:     b,
		ledger:    shared,
		shared:    shared != nil,
		remaining: outcome.GetLocal(b.Node, outcome.KeySpinCount, s.settings.FreespinCount),
		stream:    spinDocs(b),
	}
	if f.ledger == nil {
		f.ledger = ledger.New()
	}
	if len(f.stream) == 0 {
		errs.Report(s.log, "freespins", errs.Consistency("freespin bonus %s has no spin stream", b.Name))
	}
	return f
}

// spinDocs 預先取得的免費遊戲序列：free_spins 陣列，沒有時取巢狀 bonus 節點的子結果。
// spin 本身宣告的 bonus，子結果是這一輪的 base 得分，不能當成免費遊戲重播。
func spinDocs(b *outcome.Bonus) []map[string]any {
	var docs []map[string]any
	for _, e := range outcome.GetLocal[[]any](b.Node, outcome.KeyFreeSpins, nil) {
		if m, ok := e.(map[string]any); ok {
			docs = append(docs, m)
		}
	}
	if len(docs) > 0 || b.OnSpin {
		return docs
	}
	for _, sub := range b.Node.SubOutcomes() {
		docs = append(docs, sub.Doc())
	}
	return docs
}

func (f *Freespins) Len() int { return len(f.stream) }
func (f *Freespins) Played() int { return f.played }
func (f *Freespins) Remaining() int { return f.remaining }
func (f *Freespins) Done() bool { return f.done }
func (f *Freespins) Shared() bool { return f.shared }
func (f *Freespins) Name() string { return f.bonus.Name }
func (f *Freespins) Ledger() *ledger.Ledger { return f.ledger }

func (f *Freespins) hasNext() bool {
	return !f.done && f.remaining != 0 && f.played < len(f.stream)
}

// retrigger 序列中再次觸發：接上新的 stream 並加次數
func (f *Freespins) retrigger(b *outcome.Bonus) {
	more := spinDocs(b)
	f.stream = append(f.stream, more...)
	if f.remaining >= 0 {
		f.remaining += outcome.GetLocal(b.Node, outcome.KeySpinCount, len(more))
	}
}

// Run 依序跑完整段免費遊戲，回傳序列總贏分
func (f *Freespins) Run(ctx context.Context) (int64, error) {
	p := f.parent
	start := f.ledger.Running()
	if !f.shared {
		start = 0
	}
	f.child = p.freespinChild(f)
	for f.hasNext() {
		doc := f.stream[f.played]
		f.played++
		if f.remaining > 0 {
			f.remaining--
		}
		p.report.Freespins++
		f.child.begin(p.wager, p.multiplier, doc)
		err := f.child.drive(ctx, StatePrespin)
		p.report.Bonuses = append(p.report.Bonuses, f.child.report.Bonuses...)
		if err != nil {
			f.done = true
			return f.ledger.Running() - start, errs.Wrap(err, "freespins : iteration aborted")
		}
	}
	if f.remaining > 0 && len(f.stream) > 0 {
		errs.Report(p.log, "freespins", errs.Consistency("freespin stream exhausted with %d spins remaining", f.remaining))
	}
	f.child.runHooks(ctx, HookFreespinEnd)
	f.done = true

	win := f.ledger.Running() - start
	if f.shared {
		p.fold(ctx)
	} else {
		f.ledger.Fold()
	}
	return win, nil
}

// freespinChild 每一輪共用的子 session：同一組協作者與帳本，不扣注
func (s *Session) freespinChild(f *Freespins) *Session {
	return &Session{
		id:       s.id,
		env:      s.env,
		log:      s.log.With("freespins", f.bonus.Name),
		game:     s.game,
		settings: s.settings,
		catalog:  s.catalog,
		strategy: s.strategy,
		ledger:   f.ledger,
		reelSet:  s.reelSet,
		stickies: s.stickies,
		fs:       f,
	}
}
