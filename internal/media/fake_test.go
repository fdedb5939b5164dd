package media

import (
	"context"
	"strings"

	"media-toolkit/internal/command"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return command.Result{Stdout: f.stdout}, f.err
}

func (f *fakeRunner) lastArgs() string {
	if len(f.calls) == 0 {
		return ""
	}
	return strings.Join(f.calls[len(f.calls)-1].args, " ")
}
