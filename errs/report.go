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

package errs

import (
	"context"
	"log/slog"
)

// Report 依錯誤等級寫入 log：Fatal → Error、Warn → Warn、Log → Info。
// log 為 nil 時不輸出。
func Report(log *slog.Logger, msg string, err error) {
	if log == nil || err == nil {
		return
	}
	lv := slog.LevelError
	kind := KindNone
	if e, ok := AsErr(err); ok {
		kind = e.Kind
		switch e.ErrLv {
		case Warn:
			lv = slog.LevelWarn
		case Log:
			lv = slog.LevelInfo
		}
	}
	log.LogAttrs(context.Background(), lv, msg,
		slog.String("fault_kind", kind.String()),
		slog.Any("err", err),
	)
}
