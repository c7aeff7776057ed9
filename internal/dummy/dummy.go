// Package dummy provides a scripted backend used when no real provider
// should be called.
package dummy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	modelpkg "github.com/stupiduntilnot/reportchat/internal/model"
)

type action struct {
	kind string
	arg  string
}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			actions = append(actions, action{kind: "ok"})
			continue
		}
		if strings.HasPrefix(token, "ok:") {
			actions = append(actions, action{kind: "ok", arg: strings.TrimPrefix(token, "ok:")})
			continue
		}
		if strings.HasPrefix(token, "err:") {
			actions = append(actions, action{kind: "err", arg: strings.TrimPrefix(token, "err:")})
			continue
		}
		if strings.HasPrefix(token, "sleep:") {
			actions = append(actions, action{kind: "sleep", arg: strings.TrimPrefix(token, "sleep:")})
			continue
		}
		if strings.HasPrefix(token, "msg:") {
			actions = append(actions, action{kind: "msg", arg: strings.TrimPrefix(token, "msg:")})
			continue
		}
		if strings.HasPrefix(token, "msgb64:") {
			actions = append(actions, action{kind: "msgb64", arg: strings.TrimPrefix(token, "msgb64:")})
			continue
		}
		return nil, fmt.Errorf("invalid dummy action: %s", token)
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Provider is a scripted model.Sender for offline runs and tests. Each Send
// consumes the next action; the last action repeats once the script is
// exhausted.
type Provider struct {
	mu       sync.Mutex
	script   *scriptRunner
	requests []modelpkg.Request
}

// NewProvider parses a comma separated script of ok, ok:<text>, err:<class>,
// sleep:<ms>, msg:<text> and msgb64:<base64> actions.
func NewProvider(script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{script: runner}, nil
}

// Requests returns the requests received so far.
func (p *Provider) Requests() []modelpkg.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]modelpkg.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) Send(ctx context.Context, req modelpkg.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	a := p.script.next()
	p.mu.Unlock()

	switch a.kind {
	case "ok":
		return emptyAs(a.arg, "dummy-ok"), nil
	case "err":
		return "", fmt.Errorf("dummy provider error class=%s", emptyAs(a.arg, "provider_api"))
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "dummy-after-sleep", nil
	case "msg":
		return a.arg, nil
	case "msgb64":
		raw, err := base64.StdEncoding.DecodeString(a.arg)
		if err != nil {
			return "", fmt.Errorf("dummy provider msgb64 decode failed: %w", err)
		}
		return string(raw), nil
	default:
		return "dummy-ok", nil
	}
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
