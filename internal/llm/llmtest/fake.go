// Package llmtest provides a scripted completer for tests of code that sits
// on top of the completion client.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"dealflow/internal/llm"
)

// Fake answers by stage label (see llm.WithStage). Stages without a scripted
// reply or error fail the call.
type Fake struct {
	ModelName string

	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []Call
}

type Call struct {
	Stage    string
	Prompt   string
	RoleHint string
}

func New() *Fake {
	return &Fake{ModelName: "fake-model", responses: map[string]string{}, errs: map[string]error{}}
}

func (f *Fake) Reply(stage, text string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[stage] = text
	delete(f.errs, stage)
	return f
}

func (f *Fake) Fail(stage string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[stage] = err
	return f
}

func (f *Fake) Complete(ctx context.Context, prompt, roleHint string) (string, error) {
	stage := llm.StageFromContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Stage: stage, Prompt: prompt, RoleHint: roleHint})
	if err, ok := f.errs[stage]; ok {
		return "", err
	}
	if out, ok := f.responses[stage]; ok {
		return out, nil
	}
	return "", fmt.Errorf("llmtest: no reply scripted for stage %q", stage)
}

func (f *Fake) Model() string { return f.ModelName }

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor counts calls made for stage.
func (f *Fake) CallsFor(stage string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Stage == stage {
			n++
		}
	}
	return n
}

var _ llm.Completer = (*Fake)(nil)
