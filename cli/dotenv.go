package cli

import (
	"fmt"
	"strings"

	ini "gopkg.in/ini.v1"
)

// LoadDotEnv reads the KEY=VALUE lines of a dotenv file. Comments, quoted
// values and a leading "export " are handled; sections are not expected.
func LoadDotEnv(path string) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:        "=",
		SpaceBeforeInlineComment:  true,
		UnescapeValueDoubleQuotes: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("loading env file %s: %w", path, err)
	}

	env := make(map[string]string)
	for _, key := range f.Section("").Keys() {
		name := strings.TrimSpace(strings.TrimPrefix(key.Name(), "export "))
		if name == "" {
			continue
		}
		env[name] = key.Value()
	}
	return env, nil
}
