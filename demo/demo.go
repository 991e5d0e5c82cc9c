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

// Package demo 內建兩款示範遊戲（連線與消除）及其結果池，給 harness 與回放使用。
package demo

import (
	"log/slog"

	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/demo/demo_configs"
	"github.com/zintix-labs/spinflow/demo/demo_fixtures"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/server/logger"
	"github.com/zintix-labs/spinflow/server/svrcfg"
	"github.com/zintix-labs/spinflow/source"
	"github.com/zintix-labs/spinflow/spec"
)

const (
	LinesGID  spec.GID = 1001
	TumbleGID spec.GID = 1002
)

// Pools 示範遊戲對應的結果池檔名
var Pools = map[spec.GID]string{
	LinesGID:  demo_fixtures.LinesPool,
	TumbleGID: demo_fixtures.TumblePool,
}

func New(log *slog.Logger) (*spinflow.Spinflow, error) {
	return spinflow.NewAuto(spinflow.Configs(demo_configs.FS), log)
}

// Pool 讀取示範遊戲的結果池
func Pool(id spec.GID) (*source.PoolFile, error) {
	name, ok := Pools[id]
	if !ok {
		return nil, errs.Config("no demo pool for game %d", id)
	}
	return source.LoadPool(demo_fixtures.FS, name)
}

// NewServerConfig harness 設定：示範遊戲與結果池。log 為 nil 時使用 dev 模式的 async logger
func NewServerConfig(log *slog.Logger) (*svrcfg.SvrCfg, error) {
	if log == nil {
		log = logger.NewDefaultAsyncLogger(logger.ModeDev)
	}
	sf, err := New(log)
	if err != nil {
		return nil, errs.NewFatal("new spinflow failed:" + err.Error())
	}
	return &svrcfg.SvrCfg{
		Log:      log,
		Spinflow: sf,
		Fixtures: demo_fixtures.FS,
		Pools:    Pools,
	}, nil
}
