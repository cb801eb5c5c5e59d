package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultSuccessCode = 200

// profilesFile represents the structure of the profiles configuration file.
type profilesFile struct {
	Profiles []profileEntry `json:"profiles" yaml:"profiles"`
}

type profileEntry struct {
	Name        string `json:"name" yaml:"name"`
	DataKey     string `json:"data_key" yaml:"data_key"`
	CodeKey     string `json:"code_key" yaml:"code_key"`
	MessageKey  string `json:"message_key" yaml:"message_key"`
	SuccessCode *int   `json:"success_code" yaml:"success_code"`
}

// Profiles is a named set of envelope configurations loaded from a file.
type Profiles struct {
	mu  sync.RWMutex
	idx map[string]Config
}

// NewProfiles builds a registry from in-memory configs.
func NewProfiles(cfgs map[string]Config) (*Profiles, error) {
	p := &Profiles{idx: make(map[string]Config, len(cfgs))}
	for name, cfg := range cfgs {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("profile name is required")
		}
		cfg = cfg.sanitized()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		p.idx[name] = cfg
	}
	return p, nil
}

// LoadProfiles reads envelope profiles from a YAML or JSON file.
func LoadProfiles(path string) (*Profiles, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profiles file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	parsed, err := parseProfiles(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Profiles) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}

	p := &Profiles{idx: make(map[string]Config, len(parsed.Profiles))}
	for i, entry := range parsed.Profiles {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("profiles[%d]: name is required", i)
		}
		if _, exists := p.idx[name]; exists {
			return nil, fmt.Errorf("duplicate profile name %q", name)
		}
		cfg := entry.config().sanitized()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("profiles[%d] %q: %w", i, name, err)
		}
		p.idx[name] = cfg
	}
	return p, nil
}

func (e profileEntry) config() Config {
	code := defaultSuccessCode
	if e.SuccessCode != nil {
		code = *e.SuccessCode
	}
	return Config{
		DataKey:     e.DataKey,
		CodeKey:     e.CodeKey,
		MessageKey:  e.MessageKey,
		SuccessCode: code,
	}
}

func parseProfiles(data []byte, ext string) (profilesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out profilesFile
		if err := d.fn(data, &out); err == nil {
			return out, nil
		}
	}
	return profilesFile{}, errors.New("profiles file format not recognized (expected YAML or JSON)")
}

// ByName returns the profile config by name.
func (p *Profiles) ByName(name string) (Config, bool) {
	if p == nil {
		return Config{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.idx[strings.TrimSpace(name)]
	return cfg, ok
}

// Names returns the sorted profile names.
func (p *Profiles) Names() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.idx))
	for name := range p.idx {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Mapper builds a Mapper for the named profile; the name is applied with WithName.
func (p *Profiles) Mapper(name string, opts ...Option) (*Mapper, error) {
	cfg, ok := p.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown envelope profile %q", name)
	}
	return New(cfg, append([]Option{WithName(name)}, opts...)...)
}
