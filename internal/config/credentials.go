package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// maxIndexedKeys bounds the GEMINI_API_KEY_<n> series.
const maxIndexedKeys = 100

// listKeys are checked in order; the first non-empty one wins.
var listKeys = []struct {
	key string
	env string
}{
	{"gemini_api_keys", "GEMINI_API_KEYS"},
	{"gemini_api_key", "GEMINI_API_KEY"},
	{"api_key", "API_KEY"},
}

func indexedKey(i int) string {
	return fmt.Sprintf("gemini_api_key_%d", i)
}

func bindCredentialEnv(v *viper.Viper) {
	for _, lk := range listKeys {
		_ = v.BindEnv(lk.key, lk.env)
	}
	for i := 1; i <= maxIndexedKeys; i++ {
		_ = v.BindEnv(indexedKey(i), strings.ToUpper(indexedKey(i)))
	}
}

// LoadAPIKeys enumerates credentials: the first non-empty comma-separated
// list, then GEMINI_API_KEY_1..100 appended when not already present.
func LoadAPIKeys(v *viper.Viper) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, lk := range listKeys {
		raw := stringOrList(v.Get(lk.key))
		if strings.TrimSpace(raw) == "" {
			continue
		}
		for _, k := range strings.Split(raw, ",") {
			add(k)
		}
		break
	}
	for i := 1; i <= maxIndexedKeys; i++ {
		add(v.GetString(indexedKey(i)))
	}
	return keys
}

// stringOrList accepts either a comma-separated string or a config-file list.
func stringOrList(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
