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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/demo"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/perf"
	"github.com/zintix-labs/spinflow/server/logger"
	"github.com/zintix-labs/spinflow/source"
	"github.com/zintix-labs/spinflow/spec"
	"github.com/zintix-labs/spinflow/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type config struct {
	id        spec.GID
	configs   string // 外部設定檔目錄，空字串用內建示範遊戲
	pool      string // 外部結果池檔案，空字串用示範結果池
	workers   int
	players   int
	balance   int64
	wager     int64
	spins     int
	seed      int64
	format    string
	bar       bool
	pprofmode string
	logmode   string
}

type gidFlag struct{ p *spec.GID }

func (f gidFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return fmt.Sprint(uint(*f.p))
}

func (f gidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.GID(uint(u))
	return nil
}

func main() {
	cfg := &config{id: demo.LinesGID}
	flag.Var(gidFlag{&cfg.id}, "game", "target game id")
	flag.StringVar(&cfg.configs, "configs", "", "game config dir (default: built-in demo games)")
	flag.StringVar(&cfg.pool, "pool", "", "weighted result pool file, .json or .json.zst (default: demo pool)")
	flag.IntVar(&cfg.workers, "workers", 1, "number of concurrent sessions")
	flag.IntVar(&cfg.players, "players", 0, "player mode: number of players (0 = machine mode)")
	flag.Int64Var(&cfg.balance, "balance", 0, "player mode: initial balance")
	flag.Int64Var(&cfg.wager, "wager", 0, "wager per spin (0 = game default bet)")
	flag.IntVar(&cfg.spins, "spins", 100000, "spins per session")
	flag.Int64Var(&cfg.seed, "seed", 0, "int64 seed (0 = random)")
	flag.StringVar(&cfg.format, "format", "", "report format: table|json|yaml (default: console summary)")
	flag.BoolVar(&cfg.bar, "pb", true, "show progress bar")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.StringVar(&cfg.logmode, "log-mode", "silence", "log mode: dev|prod|silence")
	flag.Parse()

	if err := perf.Run(cfg.pprofmode, cfg.run); err != nil {
		log.Fatal(err)
	}
}

func (cfg *config) run() error {
	mode, err := logger.ParseMode(cfg.logmode)
	if err != nil {
		return err
	}
	lg := logger.NewDefaultLogger(mode)

	var sf *spinflow.Spinflow
	if cfg.configs == "" {
		sf, err = demo.New(lg)
	} else {
		sf, err = spinflow.NewAuto(spinflow.Configs(os.DirFS(cfg.configs)), lg)
	}
	if err != nil {
		return err
	}

	var pf *source.PoolFile
	if cfg.pool == "" {
		pf, err = demo.Pool(cfg.id)
	} else {
		pf, err = source.LoadPool(os.DirFS(filepath.Dir(cfg.pool)), filepath.Base(cfg.pool))
	}
	if err != nil {
		return err
	}
	seed := cfg.seed
	if seed == 0 {
		seed = pf.Seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := message.NewPrinter(language.English)
	p.Printf("\033[1;32m[GAME:%d] [WORKERS:%d] [PLAYERS:%d] [SPINS:%d] [SEED:%d]\033[0m\n",
		cfg.id, cfg.workers, cfg.players, cfg.spins, seed)

	res, err := sf.Replay(ctx, pf.Entries, spinflow.ReplayConfig{
		GameID:  cfg.id,
		Wager:   cfg.wager,
		Spins:   cfg.spins,
		Workers: cfg.workers,
		Players: cfg.players,
		Balance: cfg.balance,
		Seed:    seed,
		ShowPB:  cfg.bar,
	})
	if err != nil {
		return err
	}

	if cfg.format == "" {
		res.Report.StdOut(res.Used)
		if res.Players != nil {
			fmt.Println(res.Players.String())
		}
		return nil
	}
	r, ok := stats.RenderFor(cfg.format)
	if !ok {
		return errs.Config("unknown report format %q", cfg.format)
	}
	return res.Report.WriteWith(os.Stdout, r)
}
