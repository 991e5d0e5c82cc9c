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

package api

import (
	"log/slog"

	v1 "github.com/zintix-labs/spinflow/server/api/v1"
	"github.com/zintix-labs/spinflow/server/netsvr"
	"github.com/zintix-labs/spinflow/server/netsvr/middleware"
	"github.com/zintix-labs/spinflow/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 v1 api
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log)
	return registerV1API(svr, sCfg)
}

func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Compression)
	svr.Use(middleware.Recover(log))
}

func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	s, err := v1.NewSessionHandler(sCfg)
	if err != nil {
		return err
	}
	g := v1.NewGamesHandler(sCfg.Spinflow)
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/games", g.List)

		vOne.Post("/sessions", s.Create)
		vOne.Delete("/sessions/{id}", s.Delete)
		vOne.Post("/sessions/{id}/spin", s.Spin)
		vOne.Post("/sessions/{id}/forced/{key}", s.Forced)
		vOne.Get("/sessions/{id}/outcome", s.Outcome)
		vOne.Get("/sessions/{id}/complete", s.Complete)
		vOne.Get("/sessions/{id}/payout", s.Payout)
		vOne.Get("/sessions/{id}/stoporder", s.StopOrder)
	})
	return nil
}
