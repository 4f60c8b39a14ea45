package config

import (
	"reflect"
	"strings"
)

// legacyPaths maps flat top-level keys, spelled like the environment
// variables, to their nested location.
var legacyPaths = map[string][2]string{
	"log_observations": {"observations", "enabled"},
	"prime_on_start":   {"start", "prime"},
	"refresh_on_start": {"start", "refresh"},
	"loom_bin":         {"loom", "bin"},
}

// normalizeLegacyConfigMap rewrites older key spellings in a decoded YAML
// document in place: flat keys move to their section, and keys written
// without underscores ("maxbytes") take their snake_case name. A canonical
// key that is already present always wins.
func normalizeLegacyConfigMap(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	for flat, to := range legacyPaths {
		if v, ok := doc[flat]; ok {
			delete(doc, flat)
			setIfAbsent(section(doc, to[0]), to[1], v)
		}
	}
	canonicalize(doc, reflect.TypeOf(Config{}))
	return doc
}

func section(doc map[string]any, name string) map[string]any {
	m, ok := doc[name].(map[string]any)
	if !ok {
		m = map[string]any{}
		doc[name] = m
	}
	return m
}

func setIfAbsent(m map[string]any, key string, v any) {
	if _, exists := m[key]; !exists {
		m[key] = v
	}
}

// canonicalize renames squashed keys of m according to the fields of the
// struct type t, descending into nested sections.
func canonicalize(m map[string]any, t reflect.Type) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for _, f := range reflect.VisibleFields(t) {
		key := fieldKey(f)
		if key == "" || key == "-" {
			continue
		}
		if squashed := strings.ReplaceAll(key, "_", ""); squashed != key {
			if v, ok := m[squashed]; ok {
				delete(m, squashed)
				setIfAbsent(m, key, v)
			}
		}
		if sub, ok := m[key].(map[string]any); ok {
			canonicalize(sub, f.Type)
		}
	}
}

// fieldKey is the config key of a struct field: its mapstructure tag, then
// its yaml tag, then its lower-cased name.
func fieldKey(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "yaml"} {
		if v := f.Tag.Get(tag); v != "" {
			name, _, _ := strings.Cut(v, ",")
			return name
		}
	}
	return strings.ToLower(f.Name)
}
