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

// ops 開發工作：go run ./scripts [task]
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func printColor(color, msg string) {
	fmt.Printf("%s%s%s\n", color, msg, colorReset)
}

type task struct {
	desc  string
	steps [][]string
	// filter 非 nil 時逐行過濾輸出，回傳 false 表示略過該行
	filter func(line string) bool
}

var tasks = map[string]task{
	"test": {
		desc:   "short test run, ok/FAIL lines only",
		steps:  [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-cover", "-count=1"}},
		filter: okOrFail,
	},
	"test-all": {
		desc:  "all packages with coverage",
		steps: [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-cover"}},
	},
	"test-detail": {
		desc:   "verbose tests without [no test files] lines",
		steps:  [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-v", "-count=1"}},
		filter: func(l string) bool { return !strings.Contains(l, "[no test files]") },
	},
	"race": {
		desc:  "session and harness packages under the race detector",
		steps: [][]string{{"go", "test", "-race", "-count=1", "./sdk/session/...", "./server/...", "./source/...", "."}},
	},
	"replay-demo": {
		desc: "replay both demo games with a fixed seed",
		steps: [][]string{
			{"go", "run", "./cmd/replay", "-game", "1001", "-spins", "20000", "-workers", "4", "-seed", "42", "-pb=false"},
			{"go", "run", "./cmd/replay", "-game", "1002", "-spins", "20000", "-workers", "4", "-seed", "42", "-pb=false"},
		},
	},
}

func okOrFail(line string) bool {
	return strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		printColor(colorYellow, "Unknown task: "+os.Args[1])
		usage()
		os.Exit(1)
	}
	printColor(colorGreen, "running "+os.Args[1])
	for _, step := range t.steps {
		if err := run(step, t.filter); err != nil {
			printColor(colorRed, fmt.Sprintf("\n%s failed: %v", strings.Join(step, " "), err))
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts [task]")
	for name, t := range tasks {
		fmt.Printf("  %-12s %s\n", name, t.desc)
	}
}

// run 合併 stdout/stderr；有 filter 時以 ok 綠、FAIL 紅著色
func run(args []string, filter func(string) bool) error {
	cmd := exec.Command(args[0], args[1:]...)
	if filter == nil {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		return cmd.Run()
	}
	pr, pw := io.Pipe()
	cmd.Stdout, cmd.Stderr = pw, pw
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(pr)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case !filter(line):
			case strings.HasPrefix(line, "ok"):
				printColor(colorGreen, line)
			case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "failed"):
				printColor(colorRed, line)
			default:
				fmt.Println(line)
			}
		}
	}()
	err := cmd.Wait()
	_ = pw.Close()
	<-done
	return err
}
