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

package spec

import (
	"bytes"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/spinflow/errs"
	"gopkg.in/yaml.v3"
)

// StopOrderKind 停輪順序策略
type StopOrderKind string

const (
	StopOrderStandard    StopOrderKind = "standard"
	StopOrderLayered     StopOrderKind = "layered"
	StopOrderIndependent StopOrderKind = "independent"
)

// TumbleWinKind 消除玩法判定得分位置的方式
type TumbleWinKind string

const (
	TumbleByCluster TumbleWinKind = "cluster"
	TumbleByScatter TumbleWinKind = "scatter"
	TumbleByPayline TumbleWinKind = "payline"
)

// SessionSetting spin 編排參數。時間單位一律毫秒。
type SessionSetting struct {
	OutcomeTimeoutMs       int           `yaml:"outcome_timeout_ms"`
	MinSpinMs              int           `yaml:"min_spin_ms"`
	SimulatedStopMs        int           `yaml:"simulated_stop_ms"`
	SettlePollMs           int           `yaml:"settle_poll_ms"`
	RollupMs               int           `yaml:"rollup_ms"`
	RollupTickMs           int           `yaml:"rollup_tick_ms"`
	AnticipationMs         int           `yaml:"anticipation_ms"`
	BigWinThresholdStr     string        `yaml:"big_win_threshold"`
	PayBaseBeforeBonus     bool          `yaml:"pay_base_before_bonus"`
	PayBaseBeforeFreespins bool          `yaml:"pay_base_before_freespins"`
	PlayFreespinsInBase    bool          `yaml:"play_freespins_in_basegame"`
	FreespinCount          int           `yaml:"freespin_count"`
	StopOrder              StopOrderKind `yaml:"stop_order"`
	Tumble                 bool          `yaml:"tumble"`
	TumbleWin              TumbleWinKind `yaml:"tumble_win"`
	MinCluster             int           `yaml:"min_cluster"`
	TriggerAdditional      bool          `yaml:"triggering_additional_bonuses"`

	BigWinThreshold decimal.Decimal `yaml:"-"`
}

// DefaultSessionSetting 未設定 session 區塊時採用的預設值
func DefaultSessionSetting() SessionSetting {
	return SessionSetting{
		OutcomeTimeoutMs:   15000,
		MinSpinMs:          300,
		SimulatedStopMs:    600,
		SettlePollMs:       16,
		RollupMs:           1000,
		RollupTickMs:       50,
		AnticipationMs:     800,
		BigWinThresholdStr: "15",
		FreespinCount:      -1,
		StopOrder:          StopOrderStandard,
		TumbleWin:          TumbleByCluster,
		MinCluster:         5,
	}
}

// decodeSession 把 SessionRaw 以嚴格模式轉成 SessionSetting，多寫/拼錯欄位就報錯
func (gs *GameSetting) decodeSession() error {
	gs.Session = DefaultSessionSetting()
	if len(gs.SessionRaw) == 0 {
		return gs.Session.init()
	}
	bs, err := yaml.Marshal(gs.SessionRaw)
	if err != nil {
		return errs.Wrap(err, "spec.session : marshal failed")
	}
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err = dec.Decode(&gs.Session); err != nil {
		return errs.Wrap(err, "spec.session : decode failed")
	}
	return gs.Session.init()
}

func (ss *SessionSetting) init() error {
	d, err := decimal.NewFromString(ss.BigWinThresholdStr)
	if err != nil {
		return errs.Wrap(err, "spec.session : invalid big_win_threshold")
	}
	ss.BigWinThreshold = d
	return nil
}

func (ss *SessionSetting) valid() error {
	if ss.OutcomeTimeoutMs <= 0 {
		return errs.NewFatal("session.outcome_timeout_ms must be positive")
	}
	if ss.RollupTickMs <= 0 {
		return errs.NewFatal("session.rollup_tick_ms must be positive")
	}
	if ss.SettlePollMs <= 0 {
		return errs.NewFatal("session.settle_poll_ms must be positive")
	}
	if ss.FreespinCount < -1 {
		return errs.NewFatal("session.freespin_count must be -1 or >= 0")
	}
	switch ss.StopOrder {
	case StopOrderStandard, StopOrderLayered, StopOrderIndependent:
	default:
		return errs.Fatalf("session.stop_order %q unsupported", ss.StopOrder)
	}
	switch ss.TumbleWin {
	case TumbleByCluster, TumbleByScatter, TumbleByPayline:
	default:
		return errs.Fatalf("session.tumble_win %q unsupported", ss.TumbleWin)
	}
	if ss.BigWinThreshold.IsNegative() {
		return errs.NewFatal("session.big_win_threshold must not be negative")
	}
	return nil
}

func (ss *SessionSetting) OutcomeTimeout() time.Duration {
	return time.Duration(ss.OutcomeTimeoutMs) * time.Millisecond
}

func (ss *SessionSetting) MinSpin() time.Duration {
	return time.Duration(ss.MinSpinMs) * time.Millisecond
}

func (ss *SessionSetting) SimulatedStop() time.Duration {
	return time.Duration(ss.SimulatedStopMs) * time.Millisecond
}

func (ss *SessionSetting) SettlePoll() time.Duration {
	return time.Duration(ss.SettlePollMs) * time.Millisecond
}

func (ss *SessionSetting) Rollup() time.Duration {
	return time.Duration(ss.RollupMs) * time.Millisecond
}

func (ss *SessionSetting) RollupTick() time.Duration {
	return time.Duration(ss.RollupTickMs) * time.Millisecond
}

func (ss *SessionSetting) Anticipation() time.Duration {
	return time.Duration(ss.AnticipationMs) * time.Millisecond
}
