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

// Package perf 以 runtime/pprof 包住一段執行，給回放 binary 做性能分析或 PGO。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/spinflow/errs"
)

// Dir pprof 檔案寫入路徑
var Dir = "build/profiling"

// Modes 可用的 profiling 模式，空字串代表不量測
var Modes = []string{"", "cpu", "heap", "allocs"}

// Run 依 mode 量測 exe，輸出 <Dir>/<mode>.pprof。未知 mode 視為設定錯誤。
func Run(mode string, exe func() error) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return cpu(exe)
	case "heap", "allocs":
		if err := exe(); err != nil {
			return err
		}
		return snapshot(mode)
	default:
		return errs.Config("unknown pprof mode %q", mode)
	}
}

func create(mode string) (*os.File, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "pprof dir")
	}
	f, err := os.Create(filepath.Join(Dir, mode+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "create "+mode+".pprof")
	}
	return f, nil
}

func cpu(exe func() error) error {
	f, err := create("cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// snapshot heap 為 in-use 快照（先 GC），allocs 為累積配置
func snapshot(mode string) error {
	f, err := create(mode)
	if err != nil {
		return err
	}
	defer f.Close()
	if mode == "heap" {
		runtime.GC()
	}
	prof := pprof.Lookup(mode)
	if prof == nil {
		return errs.Fatalf("no %s profile", mode)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+mode+" profile")
	}
	return nil
}
