// Package demo_fixtures 示範遊戲的結果池（source.PoolFile JSON）。
package demo_fixtures

import "embed"

const (
	LinesPool  = "demo_lines_pool.json"
	TumblePool = "demo_tumble_pool.json"
)

//go:embed *.json
var FS embed.FS
