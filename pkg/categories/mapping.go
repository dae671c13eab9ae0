package categories

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed mappings/default.yaml
var defaultMappingYAML []byte

// Mapping routes one source label to a taxonomy node.
type Mapping struct {
	Label    string   `yaml:"label" validate:"required"`
	Primary  string   `yaml:"primary" validate:"required"`
	Sub      string   `yaml:"sub,omitempty"`
	Priority int      `yaml:"priority,omitempty" validate:"min=0"`
	Exclude  []string `yaml:"exclude,omitempty" validate:"dive,required"`
}

// MappingTable is the ordered label table. Order is significant: it breaks substring ties.
type MappingTable struct {
	Mappings []Mapping `yaml:"mappings" validate:"required,min=1,dive"`
}

// LoadMappingTable reads the table at path, or the built-in table when path is empty.
func LoadMappingTable(path string) (*MappingTable, error) {
	if path == "" {
		return ParseMappingTable(bytes.NewReader(defaultMappingYAML))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category mapping %q: %w", path, err)
	}
	defer f.Close()

	table, err := ParseMappingTable(f)
	if err != nil {
		return nil, fmt.Errorf("category mapping %q: %w", path, err)
	}
	return table, nil
}

func ParseMappingTable(r io.Reader) (*MappingTable, error) {
	table := &MappingTable{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(table); err != nil {
		return nil, fmt.Errorf("decode mapping yaml: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(table); err != nil {
		return nil, fmt.Errorf("invalid mapping table: %w", err)
	}
	return table, nil
}
