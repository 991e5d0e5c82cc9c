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

package httperr

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/spinflow/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel → 504/408（請求生命週期問題）
//   - errs.KindPlayer    → 402（餘額不足，請求未送出）
//   - errs.Warn          → 400（請求/參數/設定問題）
//   - errs.Log           → 200（只記錄的一致性問題，不影響回應）
//   - errs.Fatal         → 500（協定/系統問題）
//
// 本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	}

	e, ok := errs.AsErr(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if e.Kind == errs.KindPlayer {
		return http.StatusPaymentRequired // 402
	}
	switch e.ErrLv {
	case errs.Warn:
		return http.StatusBadRequest
	case errs.Log:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	http.Error(w, err.Error(), StatusCode(err))
}

// NotFound 找不到 session 或遊戲
func NotFound(w http.ResponseWriter, what string) {
	http.Error(w, what+" not found", http.StatusNotFound)
}

func Log(log *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	kind := errs.KindOf(err).String()
	switch {
	case status >= 500:
		log.Error(msg, slog.String("fault_kind", kind), slog.Any("err", err))
	case status == 402, status == 408:
		log.Warn(msg, slog.String("fault_kind", kind), slog.Any("err", err))
	case status == 200:
		log.Info(msg, slog.String("fault_kind", kind), slog.Any("err", err))
	}
}
