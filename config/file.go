package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/fabricsync/core"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// FileProvider reads configuration from a settings file. Files ending in
// .yaml or .yml are YAML mappings; everything else is JSON with comments and
// trailing commas allowed (the format of editor settings.json files). Keys
// are looked up verbatim, dots included.
//
// Update rewrites the whole file. Comments of a JSONC file are not
// preserved.
type FileProvider struct {
	mu   sync.RWMutex
	path string
	yaml bool
	json []byte         // normalized JSON document
	yml  map[string]any // YAML document
}

var _ core.Configuration = (*FileProvider)(nil)

// OpenFile loads path. A missing file yields an empty configuration that is
// created on the first Update.
func OpenFile(path string) (*FileProvider, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p := &FileProvider{path: path, yaml: ext == ".yaml" || ext == ".yml"}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) load() error {
	b, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		b = nil
	} else if err != nil {
		return &core.OpError{Op: "config.load", Kind: core.KindFileSystem, Path: p.path, Err: err}
	}

	if p.yaml {
		doc := map[string]any{}
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return &core.OpError{Op: "config.load", Kind: core.KindInvalidConfig, Path: p.path, Err: err}
		}
		p.yml = doc
		return nil
	}

	doc := jsonc.ToJSON(b)
	if len(strings.TrimSpace(string(doc))) == 0 {
		doc = []byte("{}")
	}
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return &core.OpError{Op: "config.load", Kind: core.KindInvalidConfig, Path: p.path, Err: errors.New("settings file is not a JSON object")}
	}
	p.json = doc
	return nil
}

// Get returns the string form of key or def when unset.
func (p *FileProvider) Get(key, def string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.yaml {
		v, ok := p.yml[key]
		if !ok || v == nil {
			return def
		}
		return fmt.Sprint(v)
	}
	r := gjson.GetBytes(p.json, escapeKey(key))
	if !r.Exists() {
		return def
	}
	return r.String()
}

// Update sets key to value and writes the file.
func (p *FileProvider) Update(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		out []byte
		err error
	)
	if p.yaml {
		next := make(map[string]any, len(p.yml)+1)
		for k, v := range p.yml {
			next[k] = v
		}
		next[key] = value
		if out, err = yaml.Marshal(next); err != nil {
			return &core.OpError{Op: "config.update", Kind: core.KindInvalidConfig, Path: p.path, Err: err}
		}
		if err := p.write(out); err != nil {
			return err
		}
		p.yml = next
		return nil
	}

	if out, err = sjson.SetBytes(p.json, escapeKey(key), value); err != nil {
		return &core.OpError{Op: "config.update", Kind: core.KindInvalidConfig, Path: p.path, Err: err}
	}
	if err := p.write(out); err != nil {
		return err
	}
	p.json = out
	return nil
}

func (p *FileProvider) write(b []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return &core.OpError{Op: "config.mkdir", Kind: core.KindFileSystem, Path: p.path, Err: err}
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return &core.OpError{Op: "config.write", Kind: core.KindFileSystem, Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return &core.OpError{Op: "config.rename", Kind: core.KindFileSystem, Path: p.path, Err: err}
	}
	return nil
}

// escapeKey turns a flat dotted key into a gjson/sjson path addressing that
// literal key.
func escapeKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}
