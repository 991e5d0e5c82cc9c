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
	"net/http"

	"github.com/zintix-labs/spinflow"
	"github.com/zintix-labs/spinflow/server/httperr"
)

type GamesHandler struct {
	sf *spinflow.Spinflow
}

func NewGamesHandler(sf *spinflow.Spinflow) *GamesHandler {
	return &GamesHandler{sf: sf}
}

// List 回傳所有已註冊遊戲的摘要
func (g *GamesHandler) List(w http.ResponseWriter, q *http.Request) {
	sum, err := g.sf.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
