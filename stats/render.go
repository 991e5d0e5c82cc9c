package stats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// SessionReportRender 定義輸出行為
type SessionReportRender interface {
	Write(w io.Writer, r *SessionReport) error
}

// RenderFor 依格式名稱取得渲染器：json、yaml 或 table
func RenderFor(format string) (SessionReportRender, bool) {
	switch format {
	case "json":
		return &JsonRender{}, true
	case "yaml", "yml":
		return &YAMLRender{}, true
	case "table", "":
		return &TableRender{}, true
	}
	return nil, false
}

// Json渲染
type JsonRender struct{}

func (jr *JsonRender) Write(w io.Writer, r *SessionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// YAML渲染，最內層的一維陣列輸出成 flow style
type YAMLRender struct{}

func (yr *YAMLRender) Write(w io.Writer, r *SessionReport) error {
	return forceReadableList(w, r)
}

// 表格渲染
type TableRender struct{}

func (tr *TableRender) Write(w io.Writer, r *SessionReport) error {
	keys, msg := r.fmtBasic()
	out := fmtTable(r.Summary.GameName, keys, msg)
	if len(r.Bonus.Count) > 0 {
		keys, msg = r.fmtBonus()
		out += fmtTable("Bonus", keys, msg)
	}
	_, err := io.WriteString(w, out)
	return err
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}

	// 自頂向下調整所有 sequence node 的 style：
	// - 若該 sequence 內部「沒有子 sequence」，代表它是最內層的一維（或本身就是一維）=> 用 flow style: [...]
	// - 若該 sequence 內部「有子 sequence」，代表它是外層維度 => 保持預設 block（展開）
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		return

	case yaml.SequenceNode:
		// 先判斷這個 sequence 是否包含子 sequence（代表外層維度）
		hasChildSeq := false
		for _, c := range n.Content {
			if c != nil && c.Kind == yaml.SequenceNode {
				hasChildSeq = true
				break
			}
		}

		// 先遞迴處理子節點（讓最內層先被標記成 flow）
		for _, c := range n.Content {
			styleReadableSequences(c)
		}

		// 最內層一維（或本身就是一維）=> flow style: [a, b, c]
		// 外層維度 => 保持預設 block style（不強制設定 style）
		if !hasChildSeq {
			n.Style = yaml.FlowStyle
		}
		return

	default:
		// Scalar / Alias 等不處理
		return
	}
}
