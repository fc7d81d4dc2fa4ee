package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profileFile is the on-disk shape: a list of named risk profiles.
type profileFile struct {
	Profiles []RiskProfile `yaml:"profiles"`
}

// LoadProfiles reads a YAML file of named risk profiles and validates each
// one. The result is keyed by profile name.
func LoadProfiles(path string) (map[string]RiskProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse risk profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles defined in %s", path)
	}
	out := make(map[string]RiskProfile, len(f.Profiles))
	for i := range f.Profiles {
		p := f.Profiles[i]
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
		out[p.Name] = p
	}
	return out, nil
}
