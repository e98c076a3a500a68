package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// Candidates lists the config files looked up in the working directory
// when no explicit path is given, in order.
var Candidates = []string{
	"docseek.toml",
	"docseek.yaml",
	filepath.Join("config", "settings.yaml"),
}

// ConfigStore holds a parsed settings file as dot-notation keys.
// An empty store yields the defaults.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// Discover returns the config file to load. An explicit path always wins.
// Otherwise the first existing candidate under dir is returned, or ""
// when there is none.
func Discover(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the settings file at path. The format is chosen by extension:
// .toml, .yaml/.yml or .json. An empty path gives an empty store.
func Load(path string) (*ConfigStore, error) {
	s := &ConfigStore{
		filePath: path,
		data:     make(map[string]any),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config %s: %v", domain.ErrConfiguration, path, err)
	}

	loaded, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %v", domain.ErrConfiguration, path, err)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return s, nil
}

func decode(path string, data []byte) (map[string]any, error) {
	var loaded map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if loaded == nil {
		loaded = make(map[string]any)
	}
	return loaded, nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Get retrieves a configuration value by dotted key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// Set overrides a configuration value in memory.
func (s *ConfigStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Path returns the file the store was loaded from, or "" for defaults.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Section returns a view over the keys under name.
func (s *ConfigStore) Section(name string) Section {
	return Section{store: s, prefix: name}
}

// Section reads typed values from one top-level config section.
// Every getter returns def when the key is missing or has the wrong type.
type Section struct {
	store  *ConfigStore
	prefix string
}

func (sec Section) get(key string) (any, bool) {
	return sec.store.Get(sec.prefix + "." + key)
}

// Has reports whether key is set in the section.
func (sec Section) Has(key string) bool {
	_, ok := sec.get(key)
	return ok
}

// String returns a string value.
func (sec Section) String(key, def string) string {
	val, ok := sec.get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	default:
		return def
	}
}

// Int returns an integer value. TOML integers arrive as int64 and JSON
// numbers as float64.
func (sec Section) Int(key string, def int) int {
	val, ok := sec.get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float returns a floating point value.
func (sec Section) Float(key string, def float64) float64 {
	val, ok := sec.get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns a boolean value.
func (sec Section) Bool(key string, def bool) bool {
	val, ok := sec.get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Strings returns a string list. A single string is split on commas.
func (sec Section) Strings(key string, def []string) []string {
	val, ok := sec.get(key)
	if !ok {
		return def
	}

	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	case string:
		var result []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		return result
	default:
		return def
	}
}

// Duration returns a duration. Strings use time.ParseDuration and bare
// numbers are seconds.
func (sec Section) Duration(key string, def time.Duration) time.Duration {
	val, ok := sec.get(key)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}
