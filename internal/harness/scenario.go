package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scancheck/internal/hid"
)

// Scenario defines a keyboard scan test.
// A scenario describes a simulated keyboard, drives it through a list of
// steps and checks the recorded run log afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files use it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is an optional fixed run id for deterministic traces.
	// If empty, a UUIDv7 is generated.
	RunID string `yaml:"run_id,omitempty"`

	// Config holds the driver settings.
	Config Config `yaml:"config,omitempty"`

	// Keyboard describes the simulated key matrix.
	Keyboard KeyboardSpec `yaml:"keyboard"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Checks query the run log after the driver finalized.
	Checks []Check `yaml:"checks,omitempty"`
}

// Config mirrors the driver options.
type Config struct {
	CycleDuration     Duration `yaml:"cycle_duration,omitempty"`
	Debug             bool     `yaml:"debug,omitempty"`
	Strict            bool     `yaml:"strict,omitempty"`
	AbortOnFirstError bool     `yaml:"abort_on_first_error,omitempty"`
	DefaultCycles     int      `yaml:"default_cycles,omitempty"`
	MaxCycles         int      `yaml:"max_cycles,omitempty"`
}

// KeyboardSpec describes the matrix and its keymap. Keymap entries are
// keycode names (see hid.ParseKeycode); "NoKey" leaves a position unmapped.
type KeyboardSpec struct {
	Rows   int        `yaml:"rows"`
	Cols   int        `yaml:"cols"`
	Keymap [][]string `yaml:"keymap"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Press   *Position `yaml:"press,omitempty"`
	Release *Position `yaml:"release,omitempty"`
	Tap     *Position `yaml:"tap,omitempty"`
	Clear   bool      `yaml:"clear,omitempty"`
	Init    bool      `yaml:"init,omitempty"`

	QueueReport     []AssertionSpec `yaml:"queue_report,omitempty"`
	PermanentReport []AssertionSpec `yaml:"permanent_report,omitempty"`
	QueueCycle      []AssertionSpec `yaml:"queue_cycle,omitempty"`
	PermanentCycle  []AssertionSpec `yaml:"permanent_cycle,omitempty"`

	Cycle  *CycleStep  `yaml:"cycle,omitempty"`
	Cycles *CyclesStep `yaml:"cycles,omitempty"`
	Skip   *SkipStep   `yaml:"skip,omitempty"`
}

// Step kind names, as written in scenario files.
const (
	StepPress           = "press"
	StepRelease         = "release"
	StepTap             = "tap"
	StepClear           = "clear"
	StepInit            = "init"
	StepQueueReport     = "queue_report"
	StepPermanentReport = "permanent_report"
	StepQueueCycle      = "queue_cycle"
	StepPermanentCycle  = "permanent_cycle"
	StepCycle           = "cycle"
	StepCycles          = "cycles"
	StepSkip            = "skip"
)

// Kinds returns the names of the fields set on s.
func (s Step) Kinds() []string {
	var kinds []string
	add := func(set bool, name string) {
		if set {
			kinds = append(kinds, name)
		}
	}
	add(s.Press != nil, StepPress)
	add(s.Release != nil, StepRelease)
	add(s.Tap != nil, StepTap)
	add(s.Clear, StepClear)
	add(s.Init, StepInit)
	add(len(s.QueueReport) > 0, StepQueueReport)
	add(len(s.PermanentReport) > 0, StepPermanentReport)
	add(len(s.QueueCycle) > 0, StepQueueCycle)
	add(len(s.PermanentCycle) > 0, StepPermanentCycle)
	add(s.Cycle != nil, StepCycle)
	add(s.Cycles != nil, StepCycles)
	add(s.Skip != nil, StepSkip)
	return kinds
}

// CycleStep runs one tick.
type CycleStep struct {
	Stop []AssertionSpec `yaml:"stop,omitempty"`
}

// CyclesStep runs N ticks. N == 0 uses the configured default count.
type CyclesStep struct {
	N    int             `yaml:"n,omitempty"`
	Stop []AssertionSpec `yaml:"stop,omitempty"`
	Each []AssertionSpec `yaml:"each,omitempty"`
}

// SkipStep runs ticks until Time has elapsed.
type SkipStep struct {
	Time Duration        `yaml:"time"`
	Stop []AssertionSpec `yaml:"stop,omitempty"`
}

// AssertionSpec describes one driver assertion.
type AssertionSpec struct {
	// Type selects the assertion. See the Assert* constants.
	Type string `yaml:"type"`

	// Key is the keycode for keycode_active and modifier_active.
	Key string `yaml:"key,omitempty"`

	// Keys lists keycodes for keycodes_active and modifiers_active.
	Keys []string `yaml:"keys,omitempty"`

	// N is the position for nth_report_in_cycle.
	N int `yaml:"n,omitempty"`

	// Count is the expected value for overall_reports and reports_in_cycle.
	Count int `yaml:"count,omitempty"`

	// Cycle is the expected id for cycle_is.
	Cycle uint64 `yaml:"cycle,omitempty"`

	// Time is the lower bound for time_at_least.
	Time Duration `yaml:"time,omitempty"`

	// Negate inverts the outcome.
	Negate bool `yaml:"negate,omitempty"`
}

// Assertion type constants.
const (
	AssertKeycodeActive    = "keycode_active"
	AssertKeycodesActive   = "keycodes_active"
	AssertModifierActive   = "modifier_active"
	AssertModifiersActive  = "modifiers_active"
	AssertAnyKeycodeActive = "any_keycode_active"
	AssertAnyModifier      = "any_modifier_active"
	AssertReportEmpty      = "report_empty"
	AssertNthReport        = "nth_report_in_cycle"
	AssertOverallReports   = "overall_reports"
	AssertReportsInCycle   = "reports_in_cycle"
	AssertCycleIs          = "cycle_is"
	AssertTimeAtLeast      = "time_at_least"
	AssertDumpReport       = "dump_report"
)

// Check validates the run log after the run.
type Check struct {
	// Type specifies the check:
	// - "report_count": total reports processed equals Count
	// - "cycle_count": total ticks equals Count
	// - "reports_in_cycle": reports processed during Cycle equals Count
	// - "key_reported": some report had Key active
	// - "failed_assertions": failed evaluations equal Count
	Type string `yaml:"type"`

	Count int    `yaml:"count,omitempty"`
	Cycle uint64 `yaml:"cycle,omitempty"`
	Key   string `yaml:"key,omitempty"`
}

// Check type constants.
const (
	CheckReportCount      = "report_count"
	CheckCycleCount       = "cycle_count"
	CheckReportsInCycle   = "reports_in_cycle"
	CheckKeyReported      = "key_reported"
	CheckFailedAssertions = "failed_assertions"
)

// Position is a matrix coordinate written as [row, col].
type Position struct {
	Row uint8
	Col uint8
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	var pair []int
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: position must be [row, col]: %w", node.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: position must be [row, col], got %d values", node.Line, len(pair))
	}
	for _, v := range pair {
		if v < 0 || v > 255 {
			return fmt.Errorf("line %d: position value %d out of range 0..255", node.Line, v)
		}
	}
	p.Row, p.Col = uint8(pair[0]), uint8(pair[1])
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Position) MarshalYAML() (any, error) {
	return []int{int(p.Row), int(p.Col)}, nil
}

// String returns "(row, col)".
func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

// Duration is a time.Duration written either as a Go duration string
// ("10ms", "1.5s") or as an integer number of milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if ms, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		if ms < 0 {
			return fmt.Errorf("line %d: duration must not be negative", node.Line)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	if v < 0 {
		return fmt.Errorf("line %d: duration must not be negative", node.Line)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadScenario reads, schema-validates and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails structural validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(filepath.Base(path), data)
}

// ParseScenario validates data against the scenario schema, then decodes
// and validates it. filename is used in error positions only.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if err := ValidateSchema(filename, data); err != nil {
		return nil, err
	}

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

// validateScenario checks the constraints the schema cannot express:
// keymap shape, keycode names, and one action per step.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := s.Keyboard.keymap(); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(s, i, step); err != nil {
			return err
		}
	}

	for i, c := range s.Checks {
		if err := validateCheck(i, c); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(s *Scenario, index int, step Step) error {
	kinds := step.Kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: no action set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %s", index, strings.Join(kinds, ", "))
	}

	for _, p := range []*Position{step.Press, step.Release, step.Tap} {
		if p == nil {
			continue
		}
		if int(p.Row) >= s.Keyboard.Rows || int(p.Col) >= s.Keyboard.Cols {
			return fmt.Errorf("steps[%d]: position %s outside %dx%d matrix",
				index, p, s.Keyboard.Rows, s.Keyboard.Cols)
		}
	}

	if step.Skip != nil && s.Config.CycleDuration == 0 {
		return fmt.Errorf("steps[%d]: skip requires config.cycle_duration", index)
	}

	if step.Cycles != nil && step.Cycles.N < 0 {
		return fmt.Errorf("steps[%d]: cycles.n must be non-negative", index)
	}

	for _, group := range step.assertionGroups() {
		for j, spec := range group.specs {
			if _, err := BuildAssertion(spec); err != nil {
				return fmt.Errorf("steps[%d].%s[%d]: %w", index, group.name, j, err)
			}
		}
	}
	return nil
}

type assertionGroup struct {
	name  string
	specs []AssertionSpec
}

func (s Step) assertionGroups() []assertionGroup {
	groups := []assertionGroup{
		{StepQueueReport, s.QueueReport},
		{StepPermanentReport, s.PermanentReport},
		{StepQueueCycle, s.QueueCycle},
		{StepPermanentCycle, s.PermanentCycle},
	}
	if s.Cycle != nil {
		groups = append(groups, assertionGroup{"cycle.stop", s.Cycle.Stop})
	}
	if s.Cycles != nil {
		groups = append(groups,
			assertionGroup{"cycles.stop", s.Cycles.Stop},
			assertionGroup{"cycles.each", s.Cycles.Each},
		)
	}
	if s.Skip != nil {
		groups = append(groups, assertionGroup{"skip.stop", s.Skip.Stop})
	}
	return groups
}

func validateCheck(index int, c Check) error {
	switch c.Type {
	case "":
		return fmt.Errorf("checks[%d]: type is required", index)
	case CheckReportCount, CheckCycleCount, CheckFailedAssertions:
		if c.Count < 0 {
			return fmt.Errorf("checks[%d]: count must be non-negative for %s", index, c.Type)
		}
	case CheckReportsInCycle:
		if c.Cycle == 0 {
			return fmt.Errorf("checks[%d]: cycle is required for reports_in_cycle", index)
		}
	case CheckKeyReported:
		if _, err := hid.ParseKeycode(c.Key); err != nil {
			return fmt.Errorf("checks[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("checks[%d]: unknown check type %q", index, c.Type)
	}
	return nil
}

// keymap resolves the keymap names to keycodes.
func (k KeyboardSpec) keymap() ([][]hid.Keycode, error) {
	if k.Rows < 1 || k.Cols < 1 || k.Rows > 255 || k.Cols > 255 {
		return nil, fmt.Errorf("rows and cols must be between 1 and 255 (got %dx%d)", k.Rows, k.Cols)
	}
	if len(k.Keymap) != k.Rows {
		return nil, fmt.Errorf("keymap has %d rows, expected %d", len(k.Keymap), k.Rows)
	}
	out := make([][]hid.Keycode, k.Rows)
	for r, row := range k.Keymap {
		if len(row) != k.Cols {
			return nil, fmt.Errorf("keymap row %d has %d columns, expected %d", r, len(row), k.Cols)
		}
		codes, err := hid.ParseKeycodes(row)
		if err != nil {
			return nil, fmt.Errorf("keymap row %d: %w", r, err)
		}
		out[r] = codes
	}
	return out, nil
}
