package logging

import (
	"context"
	"testing"
)

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := OperationIDFromContext(ctx); got != "" {
		t.Errorf("OperationIDFromContext(empty) = %q, want empty", got)
	}

	ctx = WithOperation(ctx, "op-1")
	ctx = WithComponent(ctx, "backup")
	ctx = WithBranch(ctx, "feature/x")
	ctx = WithCommand(ctx, "histedit backup restore")

	if got := OperationIDFromContext(ctx); got != "op-1" {
		t.Errorf("OperationIDFromContext() = %q, want %q", got, "op-1")
	}
	if got := ComponentFromContext(ctx); got != "backup" {
		t.Errorf("ComponentFromContext() = %q, want %q", got, "backup")
	}
	if got := BranchFromContext(ctx); got != "feature/x" {
		t.Errorf("BranchFromContext() = %q, want %q", got, "feature/x")
	}
	if got := CommandFromContext(ctx); got != "histedit backup restore" {
		t.Errorf("CommandFromContext() = %q, want %q", got, "histedit backup restore")
	}
}

func TestContextValues_Override(t *testing.T) {
	t.Parallel()

	ctx := WithComponent(context.Background(), "rewrite")
	ctx = WithComponent(ctx, "query")
	if got := ComponentFromContext(ctx); got != "query" {
		t.Errorf("ComponentFromContext() = %q, want %q", got, "query")
	}
}

func TestAttrsFromContext(t *testing.T) {
	t.Parallel()

	if attrs := attrsFromContext(context.Background()); len(attrs) != 0 {
		t.Errorf("attrsFromContext(empty) = %v, want none", attrs)
	}

	ctx := WithBranch(WithComponent(context.Background(), "rewrite"), "main")
	attrs := attrsFromContext(ctx)
	if len(attrs) != 2 {
		t.Fatalf("attrsFromContext() returned %d attrs, want 2", len(attrs))
	}
	if attrs[0].Key != "component" || attrs[1].Key != "branch" {
		t.Errorf("unexpected attr order: %v", attrs)
	}
}
