package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCall struct {
	Name string
	Args []string
}

// fakeRunner records invocations and delegates to handler
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(call fakeCall) (*CommandResult, error)
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	call := fakeCall{Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	if r.handler == nil {
		return &CommandResult{}, nil
	}
	return r.handler(call)
}

func (r *fakeRunner) Calls() []fakeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fakeCall(nil), r.calls...)
}

// argValue returns the value following flag in args
func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// hasArgPair reports whether flag is immediately followed by value
func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
