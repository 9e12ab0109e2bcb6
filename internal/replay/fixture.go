package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a scripted
// sequence of tool calls against a fresh store with a controlled clock.
type Fixture struct {
	Description string `json:"description"`
	Timezone    string `json:"timezone"`
	// Date is day 0 of the script, YYYY-MM-DD in Timezone.
	Date  string        `json:"date"`
	Steps []FixtureStep `json:"steps"`
}

// FixtureStep is one tool call.
//
// Day offsets the calendar date from Fixture.Date and At sets the wall clock
// ("HH:MM"). Without At the clock advances by AdvanceMinutes from the previous
// step. Repeat > 1 runs the step on Repeat consecutive days starting at Day.
// Save binds names to dotted paths of a successful payload; later string
// arguments of the form "$name" are replaced with the bound value.
type FixtureStep struct {
	ID             string            `json:"id,omitempty"`
	Day            int               `json:"day,omitempty"`
	At             string            `json:"at,omitempty"`
	AdvanceMinutes int               `json:"advance_minutes,omitempty"`
	Repeat         int               `json:"repeat,omitempty"`
	Tool           string            `json:"tool"`
	Arguments      map[string]any    `json:"arguments,omitempty"`
	Save           map[string]string `json:"save,omitempty"`
	Expect         *FixtureExpect    `json:"expect,omitempty"`
}

// FixtureExpect holds the assertions for a step. Fields maps dotted paths
// into the JSON payload to expected values. Tables maps table names to row
// counts after the step.
type FixtureExpect struct {
	ErrorKind       string         `json:"error_kind,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
	MessageContains []string       `json:"message_contains,omitempty"`
	Tables          map[string]int `json:"tables,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// LoadDir loads every *.json fixture in dir, sorted by file name.
func LoadDir(dir string) (map[string]*Fixture, []string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob fixtures: %w", err)
	}
	sort.Strings(paths)
	out := make(map[string]*Fixture, len(paths))
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFixture(p)
		if err != nil {
			return nil, nil, err
		}
		name := filepath.Base(p)
		out[name] = f
		names = append(names, name)
	}
	return out, names, nil
}

func (f *Fixture) validate() error {
	if _, err := time.Parse("2006-01-02", f.Date); err != nil {
		return fmt.Errorf("date %q: %w", f.Date, err)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("no steps")
	}
	for i, s := range f.Steps {
		if s.Tool == "" {
			return fmt.Errorf("step %d: tool is required", i)
		}
		if s.At != "" {
			if _, err := time.Parse("15:04", s.At); err != nil {
				return fmt.Errorf("step %d: at %q: %w", i, s.At, err)
			}
		}
		if s.Expect != nil {
			for table := range s.Expect.Tables {
				if !countableTables[table] {
					return fmt.Errorf("step %d: unknown table %q", i, table)
				}
			}
		}
	}
	return nil
}

// #endregion fixture-loader
