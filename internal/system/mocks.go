package system

import (
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock implementation of Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(privileged bool, args ...string) (bool, string) {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, privileged)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	return result.Bool(0), result.String(1)
}

// FakeRunner is a scripted Runner for tests that care about the sequence
// of commands rather than strict expectations. Responses are matched by
// command prefix; unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	Commands  [][]string
	responses []fakeResponse
}

type fakeResponse struct {
	prefix string
	ok     bool
	output string
}

// Respond registers a canned response for commands whose joined argument
// string starts with prefix. Later registrations win.
func (f *FakeRunner) Respond(prefix string, ok bool, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{prefix: prefix, ok: ok, output: output})
}

func (f *FakeRunner) Run(privileged bool, args ...string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	recorded := make([]string, len(args))
	copy(recorded, args)
	f.Commands = append(f.Commands, recorded)

	joined := strings.Join(args, " ")
	for i := len(f.responses) - 1; i >= 0; i-- {
		if strings.HasPrefix(joined, f.responses[i].prefix) {
			return f.responses[i].ok, f.responses[i].output
		}
	}
	return true, ""
}

// CommandStrings returns every recorded command joined with spaces.
func (f *FakeRunner) CommandStrings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = strings.Join(c, " ")
	}
	return out
}

// CountPrefix returns how many recorded commands start with prefix.
func (f *FakeRunner) CountPrefix(prefix string) int {
	n := 0
	for _, c := range f.CommandStrings() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
