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

// Package logger 組裝 harness 與 replay 使用的 slog logger。
//
// 三種模式：
//   - dev：text handler 寫 stderr，debug 等級，時間只留到毫秒
//   - prod：JSON handler 寫 stdout，info 等級
//   - silence：全部丟棄
//
// spin 狀態機本身只認 *slog.Logger，async 與否由這裡決定。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/spinflow/errs"
)

// LogMode 輸出模式
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

var modeNames = map[LogMode]string{
	ModeDev:     "dev",
	ModeProd:    "prod",
	ModeSilence: "silence",
}

func (m LogMode) String() string {
	return modeNames[m]
}

// ParseMode 由旗標或設定字串取得 LogMode，大小寫不拘
func ParseMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeDev, errs.Config("unknown log mode %q (want dev, prod or silence)", s)
}

const defaultQueue = 1024

// NewDefaultLogger 同步 logger，replay 與測試用
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(handlerFor(mode))
}

// NewDefaultAsyncLogger 非同步 logger，handler 無法取回，適合活到程序結束的 logger
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(handlerFor(mode), 8*defaultQueue))
}

// NewAsync 非同步 logger 與其 handler；呼叫端結束前應 Close 以送出殘留紀錄
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(handlerFor(mode), buf)
	return slog.New(ah), ah
}

func handlerFor(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: shortTime,
		})
	}
}

// shortTime dev 模式下時間只保留 時:分:秒.毫秒
func shortTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05.000"))
	}
	return a
}

// =========================================================
// AsyncHandler
// =========================================================

// AsyncHandler 把任何 slog.Handler 包成非阻塞：
// Handle 只把 Record 複製後丟進佇列，背景 goroutine 依序寫出。
// 佇列滿或已 Close 時丟棄並計數，spin 的計時不會被 I/O 拖慢。
//
// WithAttrs / WithGroup 產生的 handler 共用同一個佇列。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type queue struct {
	items   chan pending
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

type pending struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler buf <= 0 時使用 1024
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = handlerFor(ModeDev)
	}
	if buf <= 0 {
		buf = defaultQueue
	}
	q := &queue{
		items: make(chan pending, buf),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.loop()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) loop() {
	defer close(q.done)
	for {
		select {
		case p := <-q.items:
			_ = p.h.Handle(p.ctx, p.rec)
		case <-q.stop:
			// 把已入列的寫完再離開
			for {
				select {
				case p := <-q.items:
					_ = p.h.Handle(p.ctx, p.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil && h.next != nil
}

// Dropped 因佇列滿或 Close 後寫入而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Pending 尚未寫出的筆數
func (h *AsyncHandler) Pending() int {
	if !h.Ready() {
		return 0
	}
	return len(h.q.items)
}

// Close 停止接收並等待佇列清空，可重複呼叫
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.stop) })
	<-h.q.done
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.stop:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 內的 attrs 可能與呼叫端共用底層陣列，跨 goroutine 前先 Clone
	select {
	case h.q.items <- pending{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
