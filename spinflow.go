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

// Package spinflow 提供 spin 協調核心的「組裝入口（assembler）」。
//
// Spinflow 把遊戲目錄（Catalog）與 session 需要的協作者組裝在一起：
//  1. Catalog：遊戲目錄，定義有哪些遊戲、各自對應的設定檔名稱，同時提供解析後的 bonus 目錄。
//  2. Env：結果來源、轉輪畫面、錢包、顯示層與 hooks，由呼叫端注入。
//
// 設定檔來源一律以 fs.FS 注入，Spinflow 不綁定任何檔案路徑。
//
// 典型使用情境：
//   - 前端/harness：NewSession 建立 session，逐輪呼叫 SubmitSpin。
//   - 回放：NewHeadless 以無畫面的協作者建立 session，由 Replay 批次跑 fixture。
package spinflow

import (
	"io/fs"
	"log/slog"

	"github.com/zintix-labs/spinflow/catalog"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/headless"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/spec"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Spinflow 組裝器。Catalog 一旦 Freeze 後才能建立 session。
type Spinflow struct {
	cat *catalog.Catalog
	log *slog.Logger
	sum []catalog.Summary
}

// New 建立一個 Spinflow instance，尚未註冊任何遊戲
func New(cfgs []fs.FS, log *slog.Logger) (*Spinflow, error) {
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cat, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Spinflow{cat: cat, log: log}, nil
}

// NewAuto 註冊設定檔中宣告的所有遊戲並直接 Freeze
func NewAuto(cfgs []fs.FS, log *slog.Logger) (*Spinflow, error) {
	sf, err := New(cfgs, log)
	if err != nil {
		return nil, err
	}
	if err := sf.cat.RegisterAll(); err != nil {
		return nil, err
	}
	sf.Freeze()
	return sf, nil
}

func (p *Spinflow) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

func (p *Spinflow) Freeze() {
	p.cat.Freeze()
}

func (p *Spinflow) Catalog() *catalog.Catalog {
	return p.cat
}

func (p *Spinflow) IDs() []spec.GID {
	return p.cat.IDs()
}

func (p *Spinflow) Game(id spec.GID) (*spec.GameSetting, error) {
	return p.cat.Game(id)
}

// Summary 所有遊戲摘要，Freeze 後才可呼叫
func (p *Spinflow) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum == nil {
		p.sum = p.cat.Summaries()
	}
	return p.sum, nil
}

// NewSession 以呼叫端提供的協作者建立 session。Catalog、Log 與 Gifts 未指定時由 Spinflow 補上
func (p *Spinflow) NewSession(id spec.GID, env session.Env, opts ...session.Option) (*session.Session, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if env.Catalog == nil {
		env.Catalog = p.cat
	}
	if env.Log == nil {
		env.Log = p.log
	}
	if env.Gifts == nil {
		env.Gifts = outcome.NewGiftQueue()
	}
	return session.New(id, env, opts...)
}

// Headless 無畫面 session 與它的協作者，方便呼叫端讀取錢包與顯示紀錄
type Headless struct {
	Session   *session.Session
	Surface   *headless.Surface
	Wallet    *headless.Wallet
	Display   *headless.Display
	Refresher *headless.Refresher
}

// NewHeadless 以 headless 協作者建立 session：等待立即完成，只有結果逾時會真的等待
func (p *Spinflow) NewHeadless(id spec.GID, src session.ResultSource, forced session.ForcedSource, balance int64, opts ...session.Option) (*Headless, error) {
	if src == nil {
		return nil, errs.NewFatal("result source required")
	}
	game, err := p.cat.Game(id)
	if err != nil {
		return nil, err
	}
	h := &Headless{
		Surface:   headless.NewSurface(game),
		Wallet:    headless.NewWallet(balance),
		Display:   &headless.Display{},
		Refresher: &headless.Refresher{},
	}
	env := session.Env{
		Source:    src,
		Forced:    forced,
		Surface:   h.Surface,
		Sink:      h.Wallet,
		Display:   h.Display,
		Refresher: h.Refresher,
		Clock:     headless.Clock{Cutoff: game.Session.OutcomeTimeout()},
	}
	if h.Session, err = p.NewSession(id, env, opts...); err != nil {
		return nil, err
	}
	return h, nil
}
