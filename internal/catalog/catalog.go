// Package catalog describes the registration profiles and voting groups:
// which table each lives in and which code prefix it allocates from.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Profile is a registration category backed by its own table.
type Profile struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Table  string `yaml:"table"`
	Prefix string `yaml:"prefix"`
}

// Group is a poll topic that owns a sequence of vote definitions.
type Group struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type Voting struct {
	DefinitionsTable string   `yaml:"definitions_table"`
	ResponsesTable   string   `yaml:"responses_table"`
	VoterProfile     string   `yaml:"voter_profile"`
	AttendanceTables []string `yaml:"attendance_tables"`
	Groups           []Group  `yaml:"groups"`
}

type Catalog struct {
	Profiles []Profile `yaml:"profiles"`
	Voting   Voting    `yaml:"voting"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles")
	}
	seen := map[string]bool{}
	for i, p := range c.Profiles {
		if p.Key == "" || p.Table == "" {
			return fmt.Errorf("profile %d: key and table are required", i)
		}
		if n := len(p.Prefix); n < 2 || n > 3 {
			return fmt.Errorf("profile %s: prefix must have 2 or 3 letters", p.Key)
		}
		key := headers.NormalizeKey(p.Key)
		if seen[key] {
			return fmt.Errorf("duplicate profile %s", p.Key)
		}
		seen[key] = true
	}

	v := c.Voting
	if v.DefinitionsTable == "" || v.ResponsesTable == "" {
		return fmt.Errorf("voting: definitions_table and responses_table are required")
	}
	if _, ok := c.Profile(v.VoterProfile); !ok {
		return fmt.Errorf("voting: unknown voter_profile %q", v.VoterProfile)
	}
	for i, g := range v.Groups {
		if g.ID == "" || g.Label == "" {
			return fmt.Errorf("voting group %d: id and label are required", i)
		}
	}
	return nil
}

// Profile resolves name against each profile's key, label and table,
// ignoring case, accents and punctuation.
func (c *Catalog) Profile(name string) (Profile, bool) {
	want := headers.NormalizeKey(name)
	if want == "" {
		return Profile{}, false
	}
	for _, p := range c.Profiles {
		if headers.NormalizeKey(p.Key) == want ||
			headers.NormalizeKey(p.Label) == want ||
			headers.NormalizeKey(p.Table) == want {
			return p, true
		}
	}
	return Profile{}, false
}

// Group resolves name against group ids and labels the same way.
func (c *Catalog) Group(name string) (Group, bool) {
	want := headers.NormalizeKey(name)
	if want == "" {
		return Group{}, false
	}
	for _, g := range c.Voting.Groups {
		if headers.NormalizeKey(g.ID) == want || headers.NormalizeKey(g.Label) == want {
			return g, true
		}
	}
	return Group{}, false
}

// VoterProfile returns the profile whose members may vote.
func (c *Catalog) VoterProfile() Profile {
	p, _ := c.Profile(c.Voting.VoterProfile)
	return p
}
