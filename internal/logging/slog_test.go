package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	ctx := context.Background()

	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{"level=INFO", "msg=inf", "b=2", "level=WARN", "c=3", "level=ERROR", "d=4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSlogLogger_WithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true).With("session", "abc")
	log.Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, want := range []string{`"msg":"hello"`, `"session":"abc"`, `"k":"v"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDiscard(t *testing.T) {
	Discard().With("a", 1).Error(context.TODO(), "dropped")
}
