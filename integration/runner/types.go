package runner

import (
	"time"
)

// TestSuite is one scripted conversation. Participants named in steps are
// suffixed with a per-run id so every run starts unregistered.
type TestSuite struct {
	Name         string     `json:"name"`
	Conversation string     `json:"conversation"`
	Steps        []TestStep `json:"steps"`
}

// TestStep sends one message and checks what the worker narrates back.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Participant  string       `json:"participant"`
	Say          string       `json:"say"`
	Expectations Expectations `json:"expect"`
}

// Expectations are checked after a step's narration has gone quiet.
type Expectations struct {
	NarrationContains    []string `json:"narration_contains,omitempty"`
	NarrationNotContains []string `json:"narration_not_contains,omitempty"`
	NarrationRegex       string   `json:"narration_regex,omitempty"`
	// NoNarration expects the message to be ignored, e.g. prompt answers.
	NoNarration bool `json:"no_narration,omitempty"`

	// Character properties of the step's participant.
	Registered *bool    `json:"registered,omitempty"`
	Level      *int     `json:"level,omitempty"`
	Balance    *int     `json:"balance,omitempty"`
	MinBalance *int     `json:"min_balance,omitempty"`
	Inventory  []string `json:"inventory,omitempty"`
	Equipped   *string  `json:"equipped,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	Narration string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Suite        string
	RunID        string
	Conversation string
	Results      []TestResult
	Error        error
	Duration     time.Duration
}
