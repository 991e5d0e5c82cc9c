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

package session

// State spin 狀態
type State uint8

const (
	StateIdle State = iota
	StatePrespin
	StateAwaitingOutcome
	StateReelsSettling
	StateReevaluationLoop
	StateBonusDispatch
	StateRollup
	StateContinueWhenReady
)

var stateNames = [...]string{
	"idle",
	"prespin",
	"awaiting_outcome",
	"reels_settling",
	"reevaluation_loop",
	"bonus_dispatch",
	"rollup",
	"continue_when_ready",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Next spin 結束後的去向
type Next uint8

const (
	NextIdle Next = iota
	NextAutoSpin
	NextFreespin
)
