package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entityq/internal/compiler"
	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/querysql"
)

// DefaultTable is the table used by scenarios that do not name one.
const DefaultTable = "records"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table is the store table the records are written to.
	Table string `yaml:"table,omitempty"`

	// Records seed the table. Every record needs a string "id".
	Records []map[string]any `yaml:"records"`

	// Query is the query document under test.
	Query compiler.QueryDoc `yaml:"query"`

	// Assertions validate the query result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the query result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "ids": result ids equal IDs, in order
	// - "count": result holds Count records
	// - "record": record ID holds the Expect fields
	// - "absent": none of IDs are in the result
	Type string `yaml:"type"`

	// IDs are the expected (ids) or forbidden (absent) record ids.
	IDs []string `yaml:"ids,omitempty"`

	// Count is the expected result size (used by count).
	Count int `yaml:"count,omitempty"`

	// ID selects the record checked by a record assertion.
	ID string `yaml:"id,omitempty"`

	// Expect contains expected field values (used by record).
	// Subset match unless Exact is set.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Exact requires the record to hold exactly the Expect fields plus id.
	Exact bool `yaml:"exact,omitempty"`
}

// Assertion type constants.
const (
	AssertIDs    = "ids"
	AssertCount  = "count"
	AssertRecord = "record"
	AssertAbsent = "absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// DiscoverScenarios returns the scenario files (*.yaml, *.yml) in dir,
// sorted by path. Subdirectories are not searched.
func DiscoverScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// table returns the scenario table, defaulting to DefaultTable.
func (s *Scenario) table() string {
	if s.Table == "" {
		return DefaultTable
	}
	return s.Table
}

// irRecords converts the seed records to ir objects.
func (s *Scenario) irRecords() ([]ir.IRObject, error) {
	records := make([]ir.IRObject, len(s.Records))
	for i, rec := range s.Records {
		v, err := ir.FromGo(rec)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("records[%d]: expected an object", i)
		}
		records[i] = obj
	}
	return records, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Table != "" && !querysql.ValidIdentifier(s.Table) {
		return fmt.Errorf("table %q is not a valid identifier", s.Table)
	}

	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := map[string]bool{}
	for i, rec := range s.Records {
		id, ok := rec["id"].(string)
		if !ok || id == "" {
			return fmt.Errorf("records[%d]: id must be a non-empty string", i)
		}
		if seen[id] {
			return fmt.Errorf("records[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}

	if errs := compiler.ValidateDoc(&s.Query); len(errs) > 0 {
		return fmt.Errorf("query: %w", errs[0])
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids requires 'ids' field (use [] for an empty result)", index)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRecord:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: record requires 'id' field", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: record requires 'expect' field", index)
		}
	case AssertAbsent:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: absent requires non-empty 'ids' field", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q (valid: ids, count, record, absent)", index, a.Type)
	}

	return nil
}
