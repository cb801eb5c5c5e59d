package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// PayloadVoid classifies the envelope without decoding its data.
	PayloadVoid = "void"
	// PayloadJSON decodes the data key as raw JSON.
	PayloadJSON = "json"
)

// Target is one endpoint checked by the probe.
type Target struct {
	ID         string            `json:"id" yaml:"id"`
	URL        string            `json:"url" yaml:"url"`
	Method     string            `json:"method" yaml:"method"`
	Profile    string            `json:"profile" yaml:"profile"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	Payload    string            `json:"payload" yaml:"payload"`
	IntervalMs int               `json:"interval_ms" yaml:"interval_ms"`
}

type targetsFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Targets is the loaded, validated target list.
type Targets struct {
	list []Target
	idx  map[string]Target
}

// LoadTargets loads the targets registry from a YAML/JSON file.
func LoadTargets(path string) (*Targets, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	parsed, err := parseTargets(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewTargets(parsed.Targets)
}

// NewTargets sanitizes and validates list.
func NewTargets(list []Target) (*Targets, error) {
	t := &Targets{
		list: make([]Target, 0, len(list)),
		idx:  make(map[string]Target, len(list)),
	}
	for i, raw := range list {
		tgt := sanitizeTarget(raw)
		if err := validateTarget(tgt); err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := t.idx[tgt.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", tgt.ID)
		}
		t.list = append(t.list, tgt)
		t.idx[tgt.ID] = tgt
	}
	return t, nil
}

func parseTargets(data []byte, ext string) (targetsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		ext string
		fn  func([]byte, any) error
	}{
		{ext: ".yaml", fn: yaml.Unmarshal},
		{ext: ".yml", fn: yaml.Unmarshal},
		{ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out targetsFile
		if err := d.fn(data, &out); err == nil {
			return out, nil
		}
	}
	return targetsFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

func sanitizeTarget(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.URL = strings.TrimSpace(t.URL)
	t.Profile = strings.TrimSpace(t.Profile)
	t.Method = strings.ToUpper(strings.TrimSpace(t.Method))
	if t.Method == "" {
		t.Method = http.MethodGet
	}
	t.Payload = strings.ToLower(strings.TrimSpace(t.Payload))
	if t.Payload == "" {
		t.Payload = PayloadVoid
	}
	if t.IntervalMs < 0 {
		t.IntervalMs = 0
	}
	return t
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.URL == "" {
		return fmt.Errorf("url is required for target %q", t.ID)
	}
	if t.Profile == "" {
		return fmt.Errorf("profile is required for target %q", t.ID)
	}
	switch t.Payload {
	case PayloadVoid, PayloadJSON:
	default:
		return fmt.Errorf("unsupported payload %q for target %q", t.Payload, t.ID)
	}
	return nil
}

// All returns a copy of the targets in file order.
func (t *Targets) All() []Target {
	if t == nil {
		return nil
	}
	out := make([]Target, len(t.list))
	copy(out, t.list)
	return out
}

// ByID returns the target with the given id.
func (t *Targets) ByID(id string) (Target, bool) {
	if t == nil {
		return Target{}, false
	}
	tgt, ok := t.idx[strings.TrimSpace(id)]
	return tgt, ok
}

// Interval returns the target's own cadence, or fallback when unset.
func (t Target) Interval(fallback time.Duration) time.Duration {
	if t.IntervalMs <= 0 {
		return fallback
	}
	return time.Duration(t.IntervalMs) * time.Millisecond
}
