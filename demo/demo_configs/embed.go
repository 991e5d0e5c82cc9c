// Package demo_configs 示範遊戲的設定檔，catalog 以整個目錄註冊。
package demo_configs

import "embed"

const (
	Lines  = "demo_lines.yaml"  // 5x3 連線，game_id 1001
	Tumble = "demo_tumble.yaml" // 5x5 消除，game_id 1002
)

//go:embed *.yaml
var FS embed.FS
