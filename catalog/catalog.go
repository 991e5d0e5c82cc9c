package catalog

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/spinflow/errs"
	"github.com/zintix-labs/spinflow/sdk/outcome"
	"github.com/zintix-labs/spinflow/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate game id")
	ErrDupName = errs.NewFatal("duplicate game name")
)

const (
	cacheSize = 64
	cacheTTL  = 10 * time.Minute
)

type Entry struct {
	GID        spec.GID
	Name       string
	ConfigName string
}

type Summary struct {
	GID      spec.GID `json:"gid"`
	Name     string   `json:"name"`
	GameName string   `json:"game_name"`
	BetUnits []int    `json:"bet_units"`
	Tumble   bool     `json:"tumble"`
}

type cached struct {
	game    *spec.GameSetting
	bonuses outcome.Catalog
}

type Catalog struct {
	byID   map[spec.GID]Entry
	byName map[string]Entry
	ids    []spec.GID          // 用來穩定排序
	unique map[string]struct{} // 一組遊戲，檔名需唯一
	config *multiFS
	frozen bool

	// 解析後的設定快取，過期後下次存取重新讀檔
	cache *expirable.LRU[spec.GID, cached]
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.GID]Entry{},
		byName: map[string]Entry{},
		ids:    make([]spec.GID, 0, 100),
		unique: map[string]struct{}{},
		config: multFS,
		frozen: false,
		cache:  expirable.NewLRU[spec.GID, cached](cacheSize, nil, cacheTTL),
	}, nil
}

func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[spec.GID]struct{}{}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for _, meta := range metas {
		meta.Name = strings.TrimSpace(meta.Name)
		meta.Name = strings.ToLower(meta.Name)
		if meta.Name == "" {
			return errs.NewFatal("game name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", meta.ConfigName))
		}
		if _, ok := c.byID[meta.GID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := c.unique[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		if _, ok := seenID[meta.GID]; ok {
			return ErrDupID
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenCfg[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		seenID[meta.GID] = struct{}{}
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for _, meta := range metas {
		c.unique[meta.ConfigName] = struct{}{}
		c.byID[meta.GID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.GID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return nil
}

func (c *Catalog) GetByID(id spec.GID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	m, ok := c.byName[name]
	return m, ok
}

func (c *Catalog) IDs() []spec.GID {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]spec.GID(nil), c.ids...)
}

func (c *Catalog) All() []Entry {
	order := c.IDs()
	m := make([]Entry, 0, len(c.ids))
	for _, id := range order {
		if meta, ok := c.GetByID(id); ok {
			m = append(m, meta)
		}
	}
	return m
}

// Summaries 所有遊戲的摘要，讀不到設定的遊戲略過
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, 0, len(c.ids))
	for _, e := range c.All() {
		gs, err := c.Game(e.GID)
		if err != nil {
			continue
		}
		out = append(out, Summary{
			GID:      e.GID,
			Name:     e.Name,
			GameName: gs.GameName,
			BetUnits: append([]int(nil), gs.BetUnits...),
			Tumble:   gs.Session.Tumble,
		})
	}
	return out
}

// RegisterAll 掃描所有設定檔，以檔內宣告的 game_id / game_name 一次性註冊。
//
// 任一檔案讀取、解析或重複檢查失敗即回傳錯誤，且不註冊任何遊戲。檔名依排序處理。
func (c *Catalog) RegisterAll() error {
	names := c.config.Names()
	if len(names) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	entries := make([]Entry, 0, len(names))
	seenID := map[spec.GID]string{}
	seenName := map[string]string{}
	for _, base := range names {
		src, _ := c.config.GetFS(base)
		raw, err := fs.ReadFile(src, base)
		if err != nil {
			return errs.Wrap(err, "read config failed: "+base)
		}
		gs, err := parseGameSettingByExt(base, raw)
		if err != nil {
			return errs.WrapWithExtra(err, "parse gamesetting failed", base)
		}
		name := strings.TrimSpace(gs.GameName)
		if name == "" {
			return errs.NewFatal(fmt.Sprintf("game name required: %s", base))
		}
		id := gs.GameID
		if id == 0 {
			return errs.NewFatal(fmt.Sprintf("game id required: %s", base))
		}
		if prev, ok := seenID[id]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate game id: %d (config=%s and %s)", id, prev, base))
		}
		seenID[id] = base
		key := strings.ToLower(name)
		if prev, ok := seenName[key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate game name: %s (config=%s and %s)", key, prev, base))
		}
		seenName[key] = base
		entries = append(entries, Entry{GID: id, Name: name, ConfigName: base})
	}
	return c.Register(entries...)
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// ============================================================
// ** session.GameCatalog **
// ============================================================

// Game 依編號取遊戲設定，解析結果會快取
func (c *Catalog) Game(id spec.GID) (*spec.GameSetting, error) {
	v, err := c.load(id)
	if err != nil {
		return nil, err
	}
	return v.game, nil
}

// Bonuses 依編號取 bonus 目錄
func (c *Catalog) Bonuses(id spec.GID) (outcome.Catalog, error) {
	v, err := c.load(id)
	if err != nil {
		return nil, err
	}
	return v.bonuses, nil
}

// GameByName 依名稱取遊戲設定
func (c *Catalog) GameByName(name string) (*spec.GameSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.Config("name %q does not exist in catalog", name)
	}
	return c.Game(e.GID)
}

func (c *Catalog) load(id spec.GID) (cached, error) {
	if v, ok := c.cache.Get(id); ok {
		return v, nil
	}
	gs, err := c.GameSettingById(id)
	if err != nil {
		return cached{}, err
	}
	if gs.GameID != 0 && gs.GameID != id {
		return cached{}, errs.Config("config %s declares game_id %d, registered as %d", gs.GameName, gs.GameID, id)
	}
	gs.GameID = id
	v := cached{game: gs, bonuses: outcome.CatalogOf(&gs.BonusCatalog)}
	c.cache.Add(id, v)
	return v, nil
}

// GameSettingById
//
// 會讀取 fs.FS 中的 YAML/JSON 設定（可 zstd 壓縮）、初始化各子設定並執行基本檢查後回傳
func (c *Catalog) GameSettingById(id spec.GID) (*spec.GameSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.Config("id %d does not exist in catalog", id)
	}
	src, ok := c.config.GetFS(e.ConfigName)
	if !ok {
		return nil, errs.Config("file %s does not exist in catalog", e.ConfigName)
	}
	raw, err := fs.ReadFile(src, e.ConfigName)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return parseGameSettingByExt(e.ConfigName, raw)
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	// 2) 必須是支援的格式
	if !isConfigName(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, .json or their .zst form)", file))
	}
	// 3) 不能以 . 開頭（防止直接 .yaml / .yml）
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

func isConfigName(file string) bool {
	lower := strings.TrimSuffix(strings.ToLower(file), ".zst")
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

func parseGameSettingByExt(filename string, raw []byte) (*spec.GameSetting, error) {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".zst") {
		var err error
		if raw, err = unzstd(raw); err != nil {
			return nil, err
		}
		lower = strings.TrimSuffix(lower, ".zst")
	}
	switch filepath.Ext(lower) {
	case ".yaml", ".yml":
		return spec.GetGameSettingByYAML(raw)
	case ".json":
		return spec.GetGameSettingByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported config format: %q", filename))
	}
}

func unzstd(compressed []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Wrap(err, "read decompressed config failed")
	}
	return out, nil
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 256),
	}

	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 設定目錄必須是平的，只允許根目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			if strings.Contains(path, "/") {
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			// 其他檔案（fixture 等）略過
			if !isConfigName(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Names 所有已索引的設定檔名，排序後回傳
func (m *multiFS) Names() []string {
	out := make([]string, 0, len(m.index))
	for name := range m.index {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
