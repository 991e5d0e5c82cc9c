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

package logger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/server/logger"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want logger.LogMode
		ok   bool
	}{
		{"dev", logger.ModeDev, true},
		{" PROD ", logger.ModeProd, true},
		{"Silence", logger.ModeSilence, true},
		{"verbose", logger.ModeDev, false},
	}
	for _, c := range cases {
		got, err := logger.ParseMode(c.in)
		if (err == nil) != c.ok || got != c.want {
			t.Fatalf("ParseMode(%q)=%v,%v", c.in, got, err)
		}
		if !c.ok && errs.KindOf(err) != errs.KindConfig {
			t.Fatalf("kind=%v", errs.KindOf(err))
		}
	}
	if logger.ModeProd.String() != "prod" {
		t.Fatalf("mode name=%s", logger.ModeProd)
	}
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	ah := logger.NewAsyncHandler(slog.NewTextHandler(&buf, nil), 64)
	log := slog.New(ah).With(slog.String("session_id", "s-1"))
	for i := 0; i < 10; i++ {
		log.Info("spin", slog.Int("i", i))
	}
	ah.Close()
	out := buf.String()
	if strings.Count(out, "msg=spin") != 10 || !strings.Contains(out, "session_id=s-1") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	log.Info("late")
	if ah.Dropped() != 1 {
		t.Fatalf("dropped=%d", ah.Dropped())
	}
}
