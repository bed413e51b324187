package cli

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	ini "gopkg.in/ini.v1"
)

// sectionKeys is what decoding a section learned about its keys.
type sectionKeys struct {
	// Set holds the normalized names of the keys that reached a field.
	Set map[string]bool
	// Unknown holds the keys no field accepts, as written in the file.
	Unknown []string
}

// decodeSection decodes sec into target. Values are weakly typed, durations
// are parsed from strings and repeated keys become slices.
func decodeSection(sec *ini.Section, target any) (*sectionKeys, error) {
	return decodeValues(sectionToMap(sec), target)
}

func decodeValues(values map[string]any, target any) (*sectionKeys, error) {
	var md mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		Metadata:         &md,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		MatchName:        keysMatch,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	keys := &sectionKeys{Set: make(map[string]bool, len(md.Keys)), Unknown: md.Unused}
	for _, k := range md.Keys {
		keys.Set[normalizeKey(k)] = true
	}
	return keys, nil
}

// sectionToMap flattens a section; shadowed keys keep every value.
func sectionToMap(sec *ini.Section) map[string]any {
	m := make(map[string]any, len(sec.Keys()))
	for _, key := range sec.Keys() {
		switch vals := key.ValueWithShadows(); len(vals) {
		case 0:
			m[key.Name()] = ""
		case 1:
			m[key.Name()] = vals[0]
		default:
			m[key.Name()] = append([]string(nil), vals...)
		}
	}
	return m
}

// keysMatch lets "stop-timeout", "stop_timeout" and "StopTimeout" name the
// same field.
func keysMatch(mapKey, fieldName string) bool {
	return normalizeKey(mapKey) == normalizeKey(fieldName)
}

func normalizeKey(key string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(key))
}
