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

package svrcfg

import (
	"io/fs"
	"log/slog"
	"time"

	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/server/logger"
	"github.com/zintix-labs/spinflow/spec"
)

const (
	DefaultAddr       = ":5808"
	DefaultBalance    = 100_000
	DefaultMaxSession = 1024
	DefaultSessionTTL = 30 * time.Minute
)

type SvrCfg struct {
	Log  *slog.Logger
	Addr string

	Spinflow *spinflow.Spinflow
	Fixtures fs.FS               // 結果池所在的檔案系統
	Pools    map[spec.GID]string // 遊戲編號 -> 結果池檔名

	Balance    int64         // 新 session 預設錢包餘額
	MaxSession int           // session 表上限，超過時淘汰最久未使用
	SessionTTL time.Duration // session 閒置過期時間
}

func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}
	if sc.Spinflow == nil {
		return errs.NewFatal("spinflow is required")
	}
	if sc.Fixtures == nil {
		return errs.NewFatal("fixtures fs is required")
	}
	if len(sc.Pools) == 0 {
		return errs.NewFatal("at least one result pool is required")
	}
	if sc.Balance <= 0 {
		sc.Balance = DefaultBalance
	}
	if sc.MaxSession <= 0 {
		sc.MaxSession = DefaultMaxSession
	}
	sc.MaxSession = min(65536, sc.MaxSession)
	if sc.SessionTTL <= 0 {
		sc.SessionTTL = DefaultSessionTTL
	}
	return nil
}
