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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/server/api"
	"github.com/zintix-labs/spinflow/server/app"
	"github.com/zintix-labs/spinflow/server/netsvr"
	"github.com/zintix-labs/spinflow/server/svrcfg"
)

// Run 是 harness 的組裝器與啟動入口。
//
//  1. 驗證 SvrCfg（logger、Spinflow、結果池）。
//  2. 依 Addr 建立 chi HTTP server。
//  3. 註冊 middleware 與 v1 session 路由。
//  4. 以 app.Run() 阻塞直到收到信號或 server 結束。
//
// Run 不綁定檔案路徑或環境變數；所有依賴都透過 SvrCfg 注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但由呼叫端注入 NetSvr（自訂 adapter、listener 或 timeout）。
// svr 必須非 nil；若是 ChiAdapter 會要求 Ready()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	a := app.NewWith(sCfg.Log, svr)
	sCfg.Log.Info("[spinflow] harness listening", slog.String("addr", sCfg.Addr))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}
