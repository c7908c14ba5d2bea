package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jsylvan/foundrychat/internal/coordinator"
	"github.com/jsylvan/foundrychat/internal/foundry"
)

func TestRenderResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  coordinator.Result
		want []string
	}{
		{
			name: "answer passes through verbatim",
			res:  coordinator.Result{Kind: coordinator.KindAnswer, Text: "## 🤖 Agent Response\n\nHi there"},
			want: []string{"## 🤖 Agent Response\n\nHi there"},
		},
		{
			name: "no response",
			res:  coordinator.Result{Kind: coordinator.KindNoResponse},
			want: []string{"## 🤔 No Response", "Rephrasing your question"},
		},
		{
			name: "run failed carries the agent error",
			res:  coordinator.Result{Kind: coordinator.KindRunFailed, Text: "rate limit exceeded"},
			want: []string{"## ❌ Processing Failed", "rate limit exceeded"},
		},
		{
			name: "unexpected status names the status",
			res:  coordinator.Result{Kind: coordinator.KindUnexpectedStatus, Status: foundry.RunStatusCancelled},
			want: []string{"## ❓ Unexpected Status", "`cancelled`"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := renderResult(tt.res)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("renderResult() missing %q in:\n%s", want, got)
				}
			}
		})
	}
}

func TestRenderResultAnswerIsVerbatim(t *testing.T) {
	t.Parallel()
	text := "## 🤖 Agent Response\n\nUse `ls -la` to list files."
	if got := renderResult(coordinator.Result{Kind: coordinator.KindAnswer, Text: text}); got != text {
		t.Fatalf("answer rendering altered the text:\n%s", got)
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "uninitialized session",
			err:  coordinator.ErrSessionNotInitialized,
			want: []string{"# ⚠️ Session Error", "refresh the page"},
		},
		{
			name: "wrapped uninitialized session",
			err:  fmt.Errorf("handle message: %w", coordinator.ErrSessionNotInitialized),
			want: []string{"# ⚠️ Session Error"},
		},
		{
			name: "timeout renders as processing error",
			err:  &coordinator.TimeoutError{Wait: 0},
			want: []string{"## ❌ Processing Error"},
		},
		{
			name: "generic error carries its description",
			err:  errors.New("connection refused"),
			want: []string{"## ❌ Processing Error", "connection refused"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := renderError(tt.err)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("renderError() missing %q in:\n%s", want, got)
				}
			}
		})
	}
}
