package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wasmbridge/internal/bridge"
)

// Scenario is a scripted run of the bridge: a sequence of UI events and
// engine ticks, plus assertions on the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Drain is the poll policy, "one" (default) or "all".
	Drain string `yaml:"drain,omitempty"`

	// Steps run in order. Each upload step finishes before the next step
	// starts, so traces are deterministic.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted action.
//
//   - upload: fire a change event whose target holds Files (first one is read)
//   - upload_concurrent: fire one change event per file, then let the reads
//     finish in Complete order
//   - select: set the files of the input bound to the send button
//   - click: fire a click event at the send button
//   - bad_target: fire a change event at an element that is not a file input
//   - tick: run Count engine ticks (default 1)
type Step struct {
	Action   string     `yaml:"action"`
	Files    []FileSpec `yaml:"files,omitempty"`
	Complete []string   `yaml:"complete,omitempty"`
	Count    int        `yaml:"count,omitempty"`
}

// FileSpec describes a fake uploaded file.
type FileSpec struct {
	Name string `yaml:"name"`
	Text string `yaml:"text,omitempty"`

	// Fail, if set, makes reading the file fail with this message.
	Fail string `yaml:"fail,omitempty"`
}

// Step actions.
const (
	StepUpload           = "upload"
	StepUploadConcurrent = "upload_concurrent"
	StepSelect           = "select"
	StepClick            = "click"
	StepBadTarget        = "bad_target"
	StepTick             = "tick"
)

// Assertion validates the trace of a finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "received_count": exactly Count payloads were handed out
	// - "received_order": payloads were handed out in exactly Payloads order
	// - "upload_outcome": the upload of File ended with Outcome
	// - "trace_count": Event appears exactly Count times
	// - "pending": Count payloads were still queued at the end
	Type string `yaml:"type"`

	Count    int         `yaml:"count,omitempty"`
	Payloads [][]float32 `yaml:"payloads,omitempty"`
	File     string      `yaml:"file,omitempty"`
	Outcome  string      `yaml:"outcome,omitempty"`
	Event    string      `yaml:"event,omitempty"`
}

// Assertion type constants.
const (
	AssertReceivedCount = "received_count"
	AssertReceivedOrder = "received_order"
	AssertUploadOutcome = "upload_outcome"
	AssertTraceCount    = "trace_count"
	AssertPending       = "pending"
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

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := bridge.ParsePolicy(s.Drain); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Action {
	case StepUpload, StepSelect, StepClick, StepBadTarget:
	case StepUploadConcurrent:
		if len(st.Files) < 2 {
			return fmt.Errorf("steps[%d]: upload_concurrent needs at least two files", index)
		}
		if len(st.Complete) != len(st.Files) {
			return fmt.Errorf("steps[%d]: complete must list every file once", index)
		}
		names := make(map[string]bool, len(st.Files))
		for _, f := range st.Files {
			if f.Fail != "" {
				return fmt.Errorf("steps[%d]: fail is not supported in upload_concurrent", index)
			}
			if names[f.Name] {
				return fmt.Errorf("steps[%d]: duplicate file %q", index, f.Name)
			}
			names[f.Name] = true
		}
		for _, name := range st.Complete {
			if !names[name] {
				return fmt.Errorf("steps[%d]: complete names unknown file %q", index, name)
			}
			delete(names, name)
		}
	case StepTick:
		if st.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	for j, f := range st.Files {
		if f.Name == "" {
			return fmt.Errorf("steps[%d].files[%d]: name is required", index, j)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertReceivedCount, AssertPending:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertReceivedOrder:
		if len(a.Payloads) == 0 {
			return fmt.Errorf("assertions[%d]: payloads list is required for received_order", index)
		}
	case AssertUploadOutcome:
		if a.File == "" || a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: file and outcome are required for upload_outcome", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
