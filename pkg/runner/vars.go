package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hornet-api/hornet/pkg/collection"
)

// varPattern matches {{VAR_NAME}} or {{env:VAR_NAME}}.
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Vars is one environment's variable set, substituted into urls,
// headers, bodies and credentials before a request is sent.
type Vars map[string]string

// LoadVars reads an environment file (flat YAML map). {{env:VAR}}
// references are resolved against the process environment at load time.
func LoadVars(path string) (Vars, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var vars Vars
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("load environment %s: %w", path, err)
	}
	for key, value := range vars {
		vars[key] = resolveEnvRefs(value)
	}
	return vars, nil
}

// SaveVars writes an environment file next to its siblings.
func SaveVars(vars Vars, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("save environment: %w", err)
	}
	data, err := yaml.Marshal(vars)
	if err != nil {
		return fmt.Errorf("save environment: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ListEnvironments returns the environment names available under a
// collection's environments/ directory.
func ListEnvironments(collectionDir string) ([]string, error) {
	envDir := filepath.Join(collectionDir, collection.EnvironmentsDirName)
	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(envDir)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ext))
	}
	return names, nil
}

// Substitute replaces {{VAR}} placeholders with values from the set and
// {{env:VAR}} with process environment variables. Unknown placeholders
// are left as-is so a missing variable is visible in the sent request.
func (v Vars) Substitute(text string) string {
	if len(v) == 0 && !strings.Contains(text, "{{env:") {
		return text
	}
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))

		if sysVar, ok := strings.CutPrefix(name, "env:"); ok {
			if val := os.Getenv(sysVar); val != "" {
				return val
			}
			return match
		}
		if val, ok := v[name]; ok {
			return val
		}
		return match
	})
}

func resolveEnvRefs(text string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		if sysVar, ok := strings.CutPrefix(name, "env:"); ok {
			if val := os.Getenv(sysVar); val != "" {
				return val
			}
		}
		return match
	})
}
