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
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/spinflow/demo"
	"github.com/zintix-labs/spinflow/server"
	"github.com/zintix-labs/spinflow/server/logger"
	"github.com/zintix-labs/spinflow/server/svrcfg"
)

// Dev harness: demo games and their result pools behind the v1 session api.
func main() {
	cfg, ah, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = server.Run(cfg)
	ah.Close()
	if err != nil {
		os.Exit(1)
	}
}

type config struct {
	Addr     string
	LogMode  string
	LogBuf   int
	Balance  int64
	Sessions int
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, *logger.AsyncHandler, error) {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", svrcfg.DefaultAddr, "listen address")
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.LogBuf, "log-buf", 4096, "async log buffer size")
	flag.Int64Var(&cfg.Balance, "balance", svrcfg.DefaultBalance, "wallet balance for new sessions")
	flag.IntVar(&cfg.Sessions, "sessions", svrcfg.DefaultMaxSession, "max live sessions")
	flag.Parse()

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(cfg.LogBuf, mode)
	sCfg, err := demo.NewServerConfig(log)
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	sCfg.Addr = cfg.Addr
	sCfg.Balance = cfg.Balance
	sCfg.MaxSession = cfg.Sessions
	return sCfg, ah, nil
}
