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

package cascade

// Clear 消除標記位置的圖標(改為0)
//
//   - cells: 盤面數據 (將被原地修改)
//   - hits: 消除位置，越界的位置忽略
func Clear(cells []int16, hits []int16) {
	for _, v := range hits {
		if v >= 0 && int(v) < len(cells) {
			cells[v] = 0
		}
	}
}

// Gravity 逐軸把圖標往下壓實，上方留空
//
//   - cells: 盤面數據 (將被原地修改)
//   - cols, rows: 盤面維度
//   - fillIdxBuf: (選用) 回傳每軸最下方空格的位置，軸滿時為負數
func Gravity(cells []int16, cols int, rows int, fillIdxBuf []int) {
	for c := 0; c < cols; c++ {
		wp := (rows-1)*cols + c // 寫入位置，從底開始

		// 自底向上掃描
		for r := rows - 1; r >= 0; r-- {
			rp := r*cols + c
			if cells[rp] != 0 {
				if rp != wp {
					cells[wp] = cells[rp]
				}
				wp -= cols
			}
		}

		if fillIdxBuf != nil && c < len(fillIdxBuf) {
			fillIdxBuf[c] = wp
		}

		for w := wp; w >= 0; w -= cols {
			cells[w] = 0
		}
	}
}

// FillFromStops 依下一步的停輪位置補滿 Gravity 留下的空格
//
// 第 c 軸的空格由上而下依序取 strips[c][stops[c]+row]，輪帶長度不足時回捲。
//   - cells: 盤面 (原地修改)
//   - strips: 每軸輪帶
//   - fillIdxBuf: Gravity 回傳的每軸最下方空格位置
//   - stops: 每軸停輪位置
//   - cols: 盤面寬度
func FillFromStops(cells []int16, strips [][]int16, fillIdxBuf []int, stops []int, cols int) {
	for c, start := range fillIdxBuf {
		if start < 0 || c >= len(strips) || c >= len(stops) {
			continue
		}
		strip := strips[c]
		n := len(strip)
		if n == 0 {
			continue
		}
		for w := start; w >= 0; w -= cols {
			row := w / cols
			cells[w] = strip[((stops[c]+row)%n+n)%n]
		}
	}
}
