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

// Package source 提供本地的結果來源：固定序列、依權重抽樣的結果池與除錯用的指定結果目錄。
//
// Fixture 檔為 JSON，可用 zstd 壓縮（副檔名 .json.zst）。
package source

import (
	"bytes"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/outcome"
)

// readFixture 讀檔並視副檔名解壓
func readFixture(fsys fs.FS, name string) ([]byte, error) {
	if fsys == nil {
		return nil, errs.NewWarn("fixture fs is nil")
	}
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errs.Wrap(err, "read fixture failed: "+name)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".zst") {
		return raw, nil
	}
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Wrap(err, "read decompressed fixture failed")
	}
	return out, nil
}

// Compress 把 fixture 壓成 zstd，產生 .json.zst 用
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd writer failed")
	}
	if _, err = zw.Write(raw); err != nil {
		zw.Close()
		return nil, errs.Wrap(err, "zstd write failed")
	}
	if err = zw.Close(); err != nil {
		return nil, errs.Wrap(err, "zstd close failed")
	}
	return buf.Bytes(), nil
}

// LoadStream 讀一個結果文件陣列
func LoadStream(fsys fs.FS, name string) ([]map[string]any, error) {
	raw, err := readFixture(fsys, name)
	if err != nil {
		return nil, err
	}
	docs, err := outcome.ParseStream(raw)
	if err != nil {
		return nil, errs.Wrap(err, "fixture "+name)
	}
	return docs, nil
}

// PoolFile 結果池檔案格式
type PoolFile struct {
	Seed    int64   `json:"seed"`
	Entries []Entry `json:"entries"`
	// Forced 除錯用的指定結果，key 為 Entry.Key
	Forced []string `json:"forced"`
}

// LoadPool 讀結果池檔
func LoadPool(fsys fs.FS, name string) (*PoolFile, error) {
	raw, err := readFixture(fsys, name)
	if err != nil {
		return nil, err
	}
	pf := &PoolFile{}
	if err := outcome.Unmarshal(raw, pf); err != nil {
		return nil, errs.Wrap(err, "fixture "+name)
	}
	if len(pf.Entries) == 0 {
		return nil, errs.Config("fixture %s has no entries", name)
	}
	return pf, nil
}
