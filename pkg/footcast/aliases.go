package footcast

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/richard-senior/footcast/internal/logger"
	"gopkg.in/yaml.v3"
)

//go:embed assets/aliases.yaml
var defaultAliasesYAML []byte

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Aliases maps team names used by the live fixture feed onto historical names
type Aliases struct {
	names map[string]string
}

// LoadAliases parses the built in alias table and merges the yaml file at path over it.
// An empty path loads only the built in table.
func LoadAliases(path string) (*Aliases, error) {
	a := &Aliases{names: make(map[string]string)}
	if err := a.merge(defaultAliasesYAML); err != nil {
		return nil, fmt.Errorf("failed to parse built in aliases: %w", err)
	}
	if path == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases file %s: %w", path, err)
	}
	if err := a.merge(data); err != nil {
		return nil, fmt.Errorf("failed to parse aliases file %s: %w", path, err)
	}
	logger.Debug("Loaded team aliases", len(a.names))
	return a, nil
}

func (a *Aliases) merge(data []byte) error {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for from, to := range f.Aliases {
		a.names[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return nil
}

// Resolve returns the historical name for a live feed name.
// Unknown names lose a trailing " FC" or " AFC" and are otherwise returned unchanged.
func (a *Aliases) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if a != nil {
		if to, ok := a.names[name]; ok {
			return to
		}
	}
	for _, suffix := range []string{" AFC", " FC"} {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok {
			return trimmed
		}
	}
	return name
}
