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

package spinflow

import (
	"context"
	"crypto/rand"
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/recorder"
	"github.com/zintix-labs/spinflow/source"
	"github.com/zintix-labs/spinflow/spec"
	"github.com/zintix-labs/spinflow/stats"
)

// ReplayConfig 回放參數
type ReplayConfig struct {
	GameID     spec.GID
	Wager      int64
	Multiplier int
	Spins      int   // 每個 worker（或每位玩家）的輪數
	Workers    int   // 併發 session 數
	Players    int   // >0 時改為玩家模式：每位玩家帶 Balance 進場，破產即離場
	Balance    int64 // 玩家模式的初始餘額
	Seed       int64 // 0 代表隨機
	ShowPB     bool
}

func (c *ReplayConfig) valid(game *spec.GameSetting) error {
	if c.Wager <= 0 {
		c.Wager = int64(game.DefaultBet())
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	if c.Spins < 1 {
		return errs.NewWarn("spins must > 0")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Players > 0 && c.Balance < c.Wager {
		return errs.NewWarn("player balance must cover at least one wager")
	}
	if c.Seed == 0 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return errs.Wrap(err, "seed")
		}
		c.Seed = seed.Int64()
	}
	return nil
}

// ReplayResult 回放結果：合併報表、玩家評估（玩家模式才有）與用時
type ReplayResult struct {
	Report  *stats.SessionReport
	Players *stats.PlayerEstimate
	Seed    int64
	Used    time.Duration
}

// Replay 以結果池餵 headless session，統計整段回放。
//
// 每個 worker 擁有自己的 session 與以衍生 seed 建立的結果池，所以同一個 seed 的回放結果相同。
func (p *Spinflow) Replay(ctx context.Context, entries []source.Entry, cfg ReplayConfig) (*ReplayResult, error) {
	game, err := p.cat.Game(cfg.GameID)
	if err != nil {
		return nil, err
	}
	if err := cfg.valid(game); err != nil {
		return nil, err
	}
	jobs := cfg.Workers
	var balance, startBal int64 = math.MaxInt64 / 2, 0
	if cfg.Players > 0 {
		jobs = cfg.Players
		balance, startBal = cfg.Balance, cfg.Balance
	}
	// seed 依 job 順序預先產生，與 worker 排程無關
	seeds := newSeedMaker(cfg.Seed)
	jobSeeds := make([]int64, jobs)
	recs := make([]*recorder.SpinRecorder, jobs)
	for i := range recs {
		jobSeeds[i] = seeds.next()
		if recs[i], err = recorder.NewSpinRecorder(game.GameName, cfg.GameID, cfg.Wager, startBal); err != nil {
			return nil, err
		}
	}

	total := cfg.Spins * jobs
	if cfg.Players > 0 {
		total = jobs
	}
	bar := pb.StartNew(total)
	if !cfg.ShowPB {
		bar.SetWriter(io.Discard)
	}

	queue := make(chan int, jobs)
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	wg.Add(cfg.Workers)
	for range cfg.Workers {
		go func() {
			defer wg.Done()
			for i := range queue {
				if err := p.replayOne(ctx, entries, cfg, balance, jobSeeds[i], recs[i], bar); err != nil {
					mu.Lock()
					if first == nil {
						first = err
					}
					mu.Unlock()
					return
				}
				if cfg.Players > 0 {
					bar.Increment()
				}
			}
		}()
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if first != nil {
		return nil, first
	}

	merged, err := recorder.MergeSpinRecorder(recs)
	if err != nil {
		return nil, err
	}
	res := &ReplayResult{Report: merged.Done(), Seed: cfg.Seed, Used: used}
	if cfg.Players > 0 {
		reps := make([]*stats.SessionReport, len(recs))
		for i, r := range recs {
			reps[i] = r.Done()
		}
		res.Players = stats.EstimatePlayers(reps)
	}
	return res, nil
}

// replayOne 跑完一個 session 的回放。玩家端故障（餘額不足）結束該 session，其餘故障只計數
func (p *Spinflow) replayOne(ctx context.Context, entries []source.Entry, cfg ReplayConfig, balance int64, seed int64, rec *recorder.SpinRecorder, bar *pb.ProgressBar) error {
	pool, err := source.NewPool(entries, seed)
	if err != nil {
		return err
	}
	h, err := p.NewHeadless(cfg.GameID, pool, pool, balance)
	if err != nil {
		return err
	}
	for range cfg.Spins {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep, err := h.Session.SubmitSpin(ctx, cfg.Wager, cfg.Multiplier)
		if err != nil {
			rec.RecordFault(err)
			if errs.KindOf(err) == errs.KindPlayer {
				break
			}
		} else {
			rec.Record(rep)
		}
		if cfg.Players == 0 {
			bar.Increment()
		}
		if rec.Busted() {
			break
		}
	}
	return nil
}

// ============================================================
// ** seed **
// ============================================================

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進再用 mix63 打散，併發呼叫安全
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
