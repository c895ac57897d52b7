package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/internal/handlers"
	"github.com/jwebster45206/infamy/pkg/chat"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

var errNotFound = errors.New("character not found")

// Runner executes scripted conversations against a running Infamy API and worker.
type Runner struct {
	BaseURL string
	Client  *http.Client
	// Timeout bounds each step.
	Timeout time.Duration
	// Quiet is how long narration must pause before a step is considered answered.
	Quiet             time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{},
		Timeout:           30 * time.Second,
		Quiet:             1500 * time.Millisecond,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if len(suite.Steps) == 0 {
		return TestSuite{}, fmt.Errorf("test file %s has no steps", filename)
	}
	return suite, nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}

// RunSuite plays every step of suite in order on a fresh conversation.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	runID := uuid.NewString()[:8]
	result := TestRunResult{
		Suite:        suite.Name,
		RunID:        runID,
		Conversation: fmt.Sprintf("%s-%s", orDefault(suite.Conversation, "integration"), runID),
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := Subscribe(streamCtx, r.Client, r.BaseURL, result.Conversation)
	if err != nil {
		result.Error = err
		return result, err
	}

	scope := newScope(runID, suite)
	for i, step := range suite.Steps {
		res := r.runStep(ctx, result.Conversation, scope, step, events)
		if res.StepName == "" {
			res.StepName = fmt.Sprintf("step %d", i+1)
		}
		result.Results = append(result.Results, res)
		if !res.Success {
			r.logf("   ✗ %s: %v", res.StepName, res.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("%s: %w", res.StepName, res.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.logf("   ✓ %s (%v)", res.StepName, res.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// scope maps the participant names used in a case to run-scoped ids.
type scope struct {
	replacer *strings.Replacer
	ids      map[string]string
}

func newScope(runID string, suite TestSuite) *scope {
	ids := make(map[string]string)
	var pairs []string
	for _, step := range suite.Steps {
		if _, ok := ids[step.Participant]; ok || step.Participant == "" {
			continue
		}
		id := step.Participant + "-" + runID
		ids[step.Participant] = id
		pairs = append(pairs, "{"+step.Participant+"}", id)
	}
	return &scope{replacer: strings.NewReplacer(pairs...), ids: ids}
}

// expand substitutes {name} placeholders with participant ids.
func (s *scope) expand(text string) string {
	return s.replacer.Replace(text)
}

func (r *Runner) runStep(ctx context.Context, conversationID string, sc *scope, step TestStep, events <-chan Event) TestResult {
	start := time.Now()
	res := TestResult{StepName: step.Name}
	participantID := sc.ids[step.Participant]

	fail := func(err error) TestResult {
		res.Error = err
		res.Duration = time.Since(start)
		return res
	}

	if err := r.post(ctx, chat.MessageRequest{
		ConversationID: conversationID,
		AuthorID:       participantID,
		Content:        sc.expand(step.Say),
	}); err != nil {
		return fail(err)
	}

	narration, err := r.collect(ctx, events, step.Expectations.NoNarration)
	res.Narration = narration
	if err != nil {
		return fail(err)
	}
	if err := r.checkExpectations(ctx, sc, participantID, step.Expectations, narration); err != nil {
		return fail(err)
	}

	res.Success = true
	res.Duration = time.Since(start)
	return res
}

// collect gathers narration until it has been quiet for r.Quiet. When none is
// expected it waits one quiet period and fails if anything was narrated.
func (r *Runner) collect(ctx context.Context, events <-chan Event, expectNone bool) (string, error) {
	deadline := time.NewTimer(r.Timeout)
	defer deadline.Stop()
	quiet := time.NewTimer(r.Quiet)
	defer quiet.Stop()

	var lines []string
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return strings.Join(lines, "\n"), errors.New("event stream closed")
			}
			text := ev.Text()
			if text == "" {
				continue
			}
			lines = append(lines, text)
			quiet.Reset(r.Quiet)
		case <-quiet.C:
			if expectNone || len(lines) > 0 {
				out := strings.Join(lines, "\n")
				if expectNone && len(lines) > 0 {
					return out, fmt.Errorf("expected no narration, got %q", out)
				}
				return out, nil
			}
			quiet.Reset(r.Quiet)
		case <-deadline.C:
			return strings.Join(lines, "\n"), fmt.Errorf("no narration within %v", r.Timeout)
		case <-ctx.Done():
			return strings.Join(lines, "\n"), ctx.Err()
		}
	}
}

func (r *Runner) post(ctx context.Context, mr chat.MessageRequest) error {
	body, err := json.Marshal(mr)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("post message returned status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

func (r *Runner) getCharacter(ctx context.Context, id string) (*handlers.CharacterResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/v1/characters/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get character returned status %d: %s", resp.StatusCode, string(data))
	}
	var c handlers.CharacterResponse
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode character: %w", err)
	}
	return &c, nil
}

func (r *Runner) checkExpectations(ctx context.Context, sc *scope, participantID string, exp Expectations, narration string) error {
	var problems []string

	for _, want := range exp.NarrationContains {
		if want = sc.expand(want); !strings.Contains(narration, want) {
			problems = append(problems, fmt.Sprintf("narration missing %q", want))
		}
	}
	for _, unwanted := range exp.NarrationNotContains {
		if unwanted = sc.expand(unwanted); strings.Contains(narration, unwanted) {
			problems = append(problems, fmt.Sprintf("narration contains %q", unwanted))
		}
	}
	if exp.NarrationRegex != "" {
		re, err := regexp.Compile(sc.expand(exp.NarrationRegex))
		if err != nil {
			return fmt.Errorf("invalid narration_regex: %w", err)
		}
		if !re.MatchString(narration) {
			problems = append(problems, fmt.Sprintf("narration does not match %s", re))
		}
	}

	if needsCharacter(exp) {
		c, err := r.getCharacter(ctx, participantID)
		switch {
		case errors.Is(err, errNotFound):
			if exp.Registered == nil || *exp.Registered {
				problems = append(problems, "character is not registered")
			}
		case err != nil:
			return err
		default:
			problems = append(problems, characterProblems(exp, c)...)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s\nnarration:\n%s", strings.Join(problems, "; "), narration)
	}
	return nil
}

func needsCharacter(exp Expectations) bool {
	return exp.Registered != nil || exp.Level != nil || exp.Balance != nil ||
		exp.MinBalance != nil || len(exp.Inventory) > 0 || exp.Equipped != nil
}

func characterProblems(exp Expectations, c *handlers.CharacterResponse) []string {
	var problems []string
	if exp.Registered != nil && !*exp.Registered {
		problems = append(problems, "character should not be registered")
	}
	if exp.Level != nil && c.Level != *exp.Level {
		problems = append(problems, fmt.Sprintf("level = %d, want %d", c.Level, *exp.Level))
	}
	if exp.Balance != nil && c.Currency != *exp.Balance {
		problems = append(problems, fmt.Sprintf("balance = %d, want %d", c.Currency, *exp.Balance))
	}
	if exp.MinBalance != nil && c.Currency < *exp.MinBalance {
		problems = append(problems, fmt.Sprintf("balance = %d, want at least %d", c.Currency, *exp.MinBalance))
	}
	for _, name := range exp.Inventory {
		if _, ok := c.Item(name); !ok {
			problems = append(problems, fmt.Sprintf("inventory missing %q", name))
		}
	}
	if exp.Equipped != nil {
		got := ""
		if it, ok := c.Equipped(); ok {
			got = it.Name
		}
		if !strings.EqualFold(got, *exp.Equipped) {
			problems = append(problems, fmt.Sprintf("equipped = %q, want %q", got, *exp.Equipped))
		}
	}
	return problems
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
