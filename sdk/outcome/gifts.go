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

package outcome

import "sync"

// Gift 一份待領取的神秘禮物
type Gift struct {
	Name   string
	Amount int64
	Doc    map[string]any
}

// GiftQueue 跨 session 共用的待處理禮物佇列，由組裝端建立後傳入
type GiftQueue struct {
	mu    sync.Mutex
	items []Gift
}

func NewGiftQueue() *GiftQueue { return &GiftQueue{} }

func (q *GiftQueue) Push(g Gift) {
	q.mu.Lock()
	q.items = append(q.items, g)
	q.mu.Unlock()
}

// Pop 先進先出，空佇列回傳 false
func (q *GiftQueue) Pop() (Gift, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Gift{}, false
	}
	g := q.items[0]
	q.items = q.items[1:]
	return g, true
}

func (q *GiftQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// collectGifts mystery_gifts 陣列與 mystery_gift 類型的 reevaluation
func (n *Node) collectGifts(q *GiftQueue) {
	if q == nil {
		return
	}
	push := func(m map[string]any) {
		g := Gift{Doc: m}
		g.Name, _ = m["name"].(string)
		g.Amount, _ = convert[int64](m[KeyWinAmount])
		q.Push(g)
	}
	for _, m := range mapsOf(GetLocal[[]any](n, KeyMysteryGifts, nil)) {
		push(m)
	}
	for _, e := range n.reevaluations() {
		if ClassifyReevaluation(e) == ReevalMysteryGift {
			push(e)
		}
	}
}
