package app

import (
	"context"
	"fmt"
)

// Component 由 App 管理起停的長駐元件（目前只有 harness 的 HTTP server）。
// Run 阻塞到元件停止；Shutdown 需在 ctx 期限內收尾。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Named 可選：提供 log 用的元件名稱
type Named interface {
	Name() string
}

func nameOf(c Component) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", c)
}
