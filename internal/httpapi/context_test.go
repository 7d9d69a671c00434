package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestJoinContexts_CancelsOnEither(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(a, context.Background())
	defer cancel()
	cancelA()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled")
	}
}

func TestSetBaseContext_NilResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	if detached() != ctx {
		t.Fatal("detached should return the base context")
	}
	cancel()
	SetBaseContext(nil)
	if detached().Err() != nil {
		t.Fatal("expected background after nil reset")
	}
}
