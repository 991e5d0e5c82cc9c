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

package v1

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/sdk/session"
	"github.com/zintix-labs/spinflow/server/httperr"
	"github.com/zintix-labs/spinflow/server/svrcfg"
	"github.com/zintix-labs/spinflow/source"
	"github.com/zintix-labs/spinflow/spec"
)

const maxAutoSpin = 100

// ============================================================
// ** 請求 / 回應 **
// ============================================================

type CreateRequest struct {
	GameID  spec.GID `json:"game_id"`
	Balance int64    `json:"balance,omitempty"` // 0 = 伺服器預設
	Seed    int64    `json:"seed,omitempty"`    // 0 = 結果池檔內 seed
}

type CreateResponse struct {
	SessionID  string   `json:"session_id"`
	GameID     spec.GID `json:"game_id"`
	GameName   string   `json:"game_name"`
	Balance    int64    `json:"balance"`
	ForcedKeys []string `json:"forced_keys"`
}

type SpinRequest struct {
	Wager      int64 `json:"wager,omitempty"`      // 0 = 遊戲預設押注
	Multiplier int   `json:"multiplier,omitempty"` // 0 視為 1
	Count      int   `json:"count,omitempty"`      // >1 走 auto spin
}

type SpinResponse struct {
	Reports []*session.Report `json:"reports"`
	Balance int64             `json:"balance"`
	Error   string            `json:"error,omitempty"`
}

type PayoutResponse struct {
	Running    int64 `json:"running"`
	Paid       int64 `json:"paid"`
	Reconciled bool  `json:"reconciled"`
	Balance    int64 `json:"balance"`
}

// ============================================================
// ** SessionHandler **
// ============================================================

// SessionHandler 持有 harness 的 session 表。每個 session 綁一份結果池與 headless 協作者。
type SessionHandler struct {
	sf       *spinflow.Spinflow
	log      *slog.Logger
	balance  int64
	fixtures *fixtures
	table    *expirable.LRU[string, *entry]
}

type entry struct {
	mu   sync.Mutex // 同一 session 一次只跑一輪
	gid  spec.GID
	hl   *spinflow.Headless
	pool *source.Pool
}

// fixtures 結果池檔案只讀一次
type fixtures struct {
	cfg   *svrcfg.SvrCfg
	mu    sync.Mutex
	files map[spec.GID]*source.PoolFile
}

func (f *fixtures) get(id spec.GID) (*source.PoolFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pf, ok := f.files[id]; ok {
		return pf, nil
	}
	name, ok := f.cfg.Pools[id]
	if !ok {
		return nil, errs.Config("no result pool for game %d", id)
	}
	pf, err := source.LoadPool(f.cfg.Fixtures, name)
	if err != nil {
		return nil, err
	}
	f.files[id] = pf
	return pf, nil
}

func NewSessionHandler(sCfg *svrcfg.SvrCfg) (*SessionHandler, error) {
	if sCfg == nil || sCfg.Spinflow == nil {
		return nil, errs.NewFatal("session handler requires spinflow")
	}
	return &SessionHandler{
		sf:       sCfg.Spinflow,
		log:      sCfg.Log,
		balance:  sCfg.Balance,
		fixtures: &fixtures{cfg: sCfg, files: map[spec.GID]*source.PoolFile{}},
		table:    expirable.NewLRU[string, *entry](sCfg.MaxSession, nil, sCfg.SessionTTL),
	}, nil
}

// Len 目前存活的 session 數
func (h *SessionHandler) Len() int { return h.table.Len() }

func (h *SessionHandler) Create(w http.ResponseWriter, q *http.Request) {
	req := CreateRequest{}
	if err := decodeBody(q, &req); err != nil {
		httperr.Errs(w, err)
		return
	}
	pf, err := h.fixtures.get(req.GameID)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	pool, err := source.NewPoolFromFile(pf, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	bal := req.Balance
	if bal <= 0 {
		bal = h.balance
	}
	hl, err := h.sf.NewHeadless(req.GameID, pool, pool, bal)
	if err != nil {
		httperr.Log(h.log, "create session failed", err)
		httperr.Errs(w, err)
		return
	}
	id := hl.Session.ID()
	h.table.Add(id, &entry{gid: req.GameID, hl: hl, pool: pool})
	h.log.Info("session created", slog.String("session_id", id), slog.Int("game", int(req.GameID)))

	writeJSON(w, http.StatusCreated, CreateResponse{
		SessionID:  id,
		GameID:     req.GameID,
		GameName:   hl.Session.Game().GameName,
		Balance:    bal,
		ForcedKeys: pool.Keys(),
	})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, q *http.Request) {
	if !h.table.Remove(chi.URLParam(q, "id")) {
		httperr.NotFound(w, "session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Spin(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	req := SpinRequest{}
	if err := decodeBody(q, &req); err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Wager <= 0 {
		req.Wager = int64(e.hl.Session.Game().DefaultBet())
	}
	req.Multiplier = max(1, req.Multiplier)
	if req.Count > maxAutoSpin {
		httperr.Errs(w, errs.Warnf("count must be <= %d", maxAutoSpin))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var (
		reps []*session.Report
		err  error
	)
	if req.Count > 1 {
		reps, err = e.hl.Session.SubmitAutoSpin(q.Context(), req.Wager, req.Multiplier, req.Count)
	} else {
		var rep *session.Report
		rep, err = e.hl.Session.SubmitSpin(q.Context(), req.Wager, req.Multiplier)
		if rep != nil {
			reps = append(reps, rep)
		}
	}
	h.respondSpin(w, q, e, reps, err)
}

func (h *SessionHandler) Forced(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rep, err := e.hl.Session.SubmitForcedOutcome(q.Context(), chi.URLParam(q, "key"))
	var reps []*session.Report
	if rep != nil {
		reps = append(reps, rep)
	}
	h.respondSpin(w, q, e, reps, err)
}

// respondSpin 有錯且沒有任何完成的 report 時回錯誤碼，否則連同錯誤訊息一併回傳
func (h *SessionHandler) respondSpin(w http.ResponseWriter, q *http.Request, e *entry, reps []*session.Report, err error) {
	if err != nil {
		httperr.Log(h.log.With(slog.String("session_id", e.hl.Session.ID())), "spin failed", err)
		if !anyComplete(reps) {
			httperr.Errs(w, err)
			return
		}
	}
	bal, _ := e.hl.Wallet.Balance(q.Context())
	resp := SpinResponse{Reports: reps, Balance: bal}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Outcome(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	e.mu.Lock()
	n := e.hl.Session.CurrentOutcome()
	e.mu.Unlock()
	if n == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	b, err := outcome.Marshal(n.Doc())
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *SessionHandler) Complete(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	e.mu.Lock()
	done := e.hl.Session.IsSpinComplete()
	state := e.hl.Session.State().String()
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"complete": done, "state": state})
}

func (h *SessionHandler) Payout(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	e.mu.Lock()
	l := e.hl.Session.Ledger()
	resp := PayoutResponse{
		Running:    e.hl.Session.RunningPayout(),
		Paid:       l.Paid(),
		Reconciled: l.Reconciled(),
	}
	e.mu.Unlock()
	resp.Balance, _ = e.hl.Wallet.Balance(q.Context())
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) StopOrder(w http.ResponseWriter, q *http.Request) {
	e, ok := h.lookup(w, q)
	if !ok {
		return
	}
	qs := q.URL.Query()
	reel, err1 := strconv.Atoi(qs.Get("reel"))
	row, err2 := strconv.Atoi(qs.Get("row"))
	if err1 != nil || err2 != nil {
		httperr.Errs(w, errs.NewWarn("reel and row must be integers"))
		return
	}
	layer := 0
	if s := qs.Get("layer"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("layer must be an integer"))
			return
		}
		layer = v
	}
	e.mu.Lock()
	idx := e.hl.Session.StopOrderFor(reel, row, layer)
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"index": idx})
}

func anyComplete(reps []*session.Report) bool {
	for _, r := range reps {
		if r.Complete {
			return true
		}
	}
	return false
}

func (h *SessionHandler) lookup(w http.ResponseWriter, q *http.Request) (*entry, bool) {
	e, ok := h.table.Get(chi.URLParam(q, "id"))
	if !ok {
		httperr.NotFound(w, "session")
		return nil, false
	}
	return e, true
}

// ============================================================
// ** helpers **
// ============================================================

// decodeBody 空 body 視為零值請求
func decodeBody(q *http.Request, v any) error {
	if q.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(q.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errs.Warnf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
