// Package stub is a scripted LLMProvider for tests and offline runs.
package stub

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tokinarc-sales-be/pkg/llm"
)

// Responder produces a reply for one call.
type Responder func(history []llm.Message) (string, error)

// Provider replays scripted replies in order. Once the script is used up it
// falls back to Default, then to an echo of the last user message.
type Provider struct {
	mu      sync.Mutex
	script  []Responder
	calls   [][]llm.Message
	Default Responder
}

var _ llm.LLMProvider = (*Provider)(nil)

func New(script ...Responder) *Provider {
	return &Provider{script: script}
}

// Reply always answers text.
func Reply(text string) Responder {
	return func([]llm.Message) (string, error) { return text, nil }
}

// Fail always returns err.
func Fail(err error) Responder {
	return func([]llm.Message) (string, error) { return "", err }
}

// ErrScripted is a generic failure for tests.
var ErrScripted = errors.New("stub: scripted failure")

func (p *Provider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]llm.Message(nil), history...))
	var next Responder
	if len(p.script) > 0 {
		next, p.script = p.script[0], p.script[1:]
	} else {
		next = p.Default
	}
	p.mu.Unlock()

	if next == nil {
		return echo(history), nil
	}
	return next(history)
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Calls returns how many requests were made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// LastPrompt joins the contents of the most recent request.
func (p *Provider) LastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return ""
	}
	var parts []string
	for _, m := range p.calls[len(p.calls)-1] {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func echo(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
