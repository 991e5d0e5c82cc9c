package netsvr

import (
	"net/http"

	"github.com/zintix-labs/spinflow/server/app"
)

// NetSvr harness 的 HTTP server：可註冊路由，也能交給 app.App 管理起停。
// 換 http 框架時只需另寫一個 adapter，handler 一律是標準 net/http。
type NetSvr interface {
	NetRouter
	app.Component

	// Handler 已掛好 middleware 與路由的根 handler，httptest 直接驅動
	Handler() http.Handler
	Address() string
}

// NetRouter 只有路由能力，交給 api 子模組註冊 handler 用，拿不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
