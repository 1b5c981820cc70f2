/*
Package factory provides JSON to Go report configuration conversion.

PURPOSE:
  Converts a JSON report configuration into productivity.AggregateConfig.
  Operators change cohorts, the top-N size and the fallback exclusion
  prefixes without code changes; the aggregator itself never reads
  ambient state.

JSON SCHEMA:
  {
    "exclusion_prefixes": ["TB", "IF", "HB"],
    "top_n": 5,
    "cohorts": [
      {"name": "Time rate",   "employee_types": ["time"]},
      {"name": "Shared rate", "employee_types": ["shared"]}
    ]
  }

DEFAULTS:
  exclusion_prefixes missing -> productivity.DefaultExclusionPrefixes
  top_n missing              -> 5
  cohorts missing            -> DefaultCohorts()

VALIDATION (generic.ErrInvalidConfig):
  - top_n must not be negative
  - every cohort needs a name and at least one employee type
  - cohort names are unique
  - an employee type belongs to at most one cohort (normalized compare)

USAGE:
  f := factory.NewReportFactory()
  cfg, err := f.ParseReportConfig(jsonString)
  reporter := productivity.NewReporter(store, cfg, logger)

SEE ALSO:
  - productivity/aggregate.go: AggregateConfig
  - config/config.go: Reads report.* keys and hands them here
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// DefaultTopN is the size of the top staff ranking.
const DefaultTopN = 5

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ReportConfigJSON is the JSON representation of a report configuration.
type ReportConfigJSON struct {
	ExclusionPrefixes []string     `json:"exclusion_prefixes,omitempty"`
	TopN              *int         `json:"top_n,omitempty"`
	Cohorts           []CohortJSON `json:"cohorts,omitempty"`
}

// CohortJSON represents one roster partition.
type CohortJSON struct {
	Name          string   `json:"name"`
	EmployeeTypes []string `json:"employee_types"`
}

// DefaultCohorts splits the roster into time-rate and shared-rate workers.
func DefaultCohorts() []productivity.Cohort {
	return []productivity.Cohort{
		{Name: "Time rate", EmployeeTypes: []string{"time"}},
		{Name: "Shared rate", EmployeeTypes: []string{"shared"}},
	}
}

// =============================================================================
// REPORT FACTORY
// =============================================================================

// ReportFactory converts JSON report configurations to Go structs.
type ReportFactory struct{}

// NewReportFactory creates a new report factory.
func NewReportFactory() *ReportFactory {
	return &ReportFactory{}
}

// ParseReportConfig parses a JSON string. Blank input yields the defaults.
func (f *ReportFactory) ParseReportConfig(jsonStr string) (productivity.AggregateConfig, error) {
	var rc ReportConfigJSON
	if strings.TrimSpace(jsonStr) != "" {
		if err := json.Unmarshal([]byte(jsonStr), &rc); err != nil {
			return productivity.AggregateConfig{}, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
		}
	}
	return f.Build(rc)
}

// ParseCohorts parses a JSON array of cohorts, as stored in report.cohorts.
func (f *ReportFactory) ParseCohorts(jsonStr string) ([]productivity.Cohort, error) {
	if strings.TrimSpace(jsonStr) == "" {
		return DefaultCohorts(), nil
	}
	var cj []CohortJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("%w: cohorts: %v", generic.ErrInvalidConfig, err)
	}
	return f.buildCohorts(cj)
}

// Build applies defaults and validates.
func (f *ReportFactory) Build(rc ReportConfigJSON) (productivity.AggregateConfig, error) {
	cfg := productivity.AggregateConfig{
		ExclusionPrefixes: append([]string(nil), productivity.DefaultExclusionPrefixes...),
		TopN:              DefaultTopN,
		Cohorts:           DefaultCohorts(),
	}
	if rc.ExclusionPrefixes != nil {
		cfg.ExclusionPrefixes = productivity.ParsePrefixes(strings.Join(rc.ExclusionPrefixes, ","))
	}
	if rc.TopN != nil {
		if *rc.TopN < 0 {
			return productivity.AggregateConfig{}, fmt.Errorf("%w: top_n must not be negative, got %d", generic.ErrInvalidConfig, *rc.TopN)
		}
		cfg.TopN = *rc.TopN
	}
	if rc.Cohorts != nil {
		cohorts, err := f.buildCohorts(rc.Cohorts)
		if err != nil {
			return productivity.AggregateConfig{}, err
		}
		cfg.Cohorts = cohorts
	}
	return cfg, nil
}

func (f *ReportFactory) buildCohorts(in []CohortJSON) ([]productivity.Cohort, error) {
	names := make(map[string]bool)
	owner := make(map[string]string)
	out := make([]productivity.Cohort, 0, len(in))

	for i, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: cohort %d has no name", generic.ErrInvalidConfig, i)
		}
		if names[productivity.Normalize(name)] {
			return nil, fmt.Errorf("%w: duplicate cohort %q", generic.ErrInvalidConfig, name)
		}
		names[productivity.Normalize(name)] = true

		var types []string
		for _, t := range c.EmployeeTypes {
			key := productivity.Normalize(t)
			if key == "" {
				continue
			}
			if prev, taken := owner[key]; taken {
				return nil, fmt.Errorf("%w: employee type %q in both %q and %q", generic.ErrInvalidConfig, t, prev, name)
			}
			owner[key] = name
			types = append(types, strings.TrimSpace(t))
		}
		if len(types) == 0 {
			return nil, fmt.Errorf("%w: cohort %q has no employee types", generic.ErrInvalidConfig, name)
		}
		out = append(out, productivity.Cohort{Name: name, EmployeeTypes: types})
	}
	return out, nil
}

// ToJSON serializes a configuration back to its JSON form.
func (f *ReportFactory) ToJSON(cfg productivity.AggregateConfig) (string, error) {
	topN := cfg.TopN
	rc := ReportConfigJSON{
		ExclusionPrefixes: cfg.ExclusionPrefixes,
		TopN:              &topN,
	}
	for _, c := range cfg.Cohorts {
		rc.Cohorts = append(rc.Cohorts, CohortJSON{Name: c.Name, EmployeeTypes: c.EmployeeTypes})
	}
	b, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
