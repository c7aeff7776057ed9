package dummy

import (
	"context"
	"testing"
	"time"

	modelpkg "github.com/stupiduntilnot/reportchat/internal/model"
)

func req(text string) modelpkg.Request {
	return modelpkg.Request{UserMessage: text}
}

func TestNewProvider_InvalidScript(t *testing.T) {
	_, err := NewProvider("boom")
	if err == nil {
		t.Fatal("expected parse error for invalid script")
	}
}

func TestProvider_ScriptedResponses(t *testing.T) {
	p, err := NewProvider("err:provider_api,msg:hello")
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Send(context.Background(), req("hi"))
	if err == nil {
		t.Fatal("expected first call to error")
	}

	resp, err := p.Send(context.Background(), req("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if resp != "hello" {
		t.Fatalf("expected hello, got %q", resp)
	}

	// The last action repeats.
	resp, _ = p.Send(context.Background(), req("again"))
	if resp != "hello" {
		t.Fatalf("expected hello again, got %q", resp)
	}
	if got := len(p.Requests()); got != 3 {
		t.Fatalf("expected 3 recorded requests, got %d", got)
	}
}

func TestProvider_OkWithText(t *testing.T) {
	p, err := NewProvider("ok:fine, ok")
	if err != nil {
		t.Fatal(err)
	}
	first, _ := p.Send(context.Background(), req("a"))
	second, _ := p.Send(context.Background(), req("b"))
	if first != "fine" || second != "dummy-ok" {
		t.Fatalf("unexpected answers %q, %q", first, second)
	}
}

func TestProvider_MsgB64Action(t *testing.T) {
	p, err := NewProvider("msgb64:aGVsbG8=") // "hello"
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Send(context.Background(), req("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if resp != "hello" {
		t.Fatalf("expected hello, got %q", resp)
	}
}

func TestProvider_SleepHonoursContext(t *testing.T) {
	p, err := NewProvider("sleep:5000")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := p.Send(ctx, req("hi")); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not stop on context cancellation")
	}
}
