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

package ledger_test

import (
	"testing"

	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/ledger"
)

func TestFoldIdempotent(t *testing.T) {
	l := ledger.New()
	l.Rollup(40)
	l.Rollup(60)
	if got := l.Fold(); got != 100 {
		t.Fatalf("first fold: %d", got)
	}
	if got := l.Fold(); got != 0 {
		t.Fatalf("second fold must be a no-op, got %d", got)
	}
	if l.Paid() != 100 || !l.Reconciled() {
		t.Fatalf("paid=%d", l.Paid())
	}
	if l.LastDelta() != 60 {
		t.Fatalf("last delta: %d", l.LastDelta())
	}
}

func TestStartSpinInvariant(t *testing.T) {
	l := ledger.New()
	l.Rollup(10)
	l.Fold()
	if err := l.StartSpin(false); err != nil {
		t.Fatalf("reconciled ledger: %v", err)
	}
	if l.Running() != 0 || l.Paid() != 0 {
		t.Fatalf("not reset: %d/%d", l.Running(), l.Paid())
	}

	l.Rollup(5)
	err := l.StartSpin(false)
	if err == nil || errs.KindOf(err) != errs.KindConsistency {
		t.Fatalf("want consistency fault, got %v", err)
	}
	if errs.IsFatal(err) {
		t.Fatalf("consistency fault must not be fatal")
	}
}

func TestStartSpinCarryOver(t *testing.T) {
	l := ledger.New()
	l.Rollup(30)
	l.Fold()
	if err := l.StartSpin(true); err != nil {
		t.Fatalf("carry over: %v", err)
	}
	l.Rollup(20)
	if l.Running() != 50 || l.Pending() != 20 {
		t.Fatalf("running=%d pending=%d", l.Running(), l.Pending())
	}
	l.Zero()
	if l.Running() != 0 || !l.Reconciled() {
		t.Fatalf("zero failed")
	}
}
