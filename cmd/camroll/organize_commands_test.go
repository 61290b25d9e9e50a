package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"camroll/internal/services"
)

func TestErrorHint(t *testing.T) {
	transport := services.Wrap(services.ErrTransport, "dropbox", "files/list_folder", "boom", nil)
	cases := []struct {
		name  string
		label string
		err   error
		want  string
	}{
		{"auth", "organize dates", services.Wrap(services.ErrConfiguration, "dropbox", "preflight", "401", nil), "dropbox.access_token"},
		{"cancelled", "organize devices", context.Canceled, "interrupted"},
		{"dates retry", "organize dates", transport, "already-moved files are skipped"},
		{"devices retry", "organize devices", transport, "processed ledger"},
		{"plain error", "organize devices", errors.New("boom"), "processed ledger"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorHint(tc.label, tc.err); !strings.Contains(got, tc.want) {
				t.Fatalf("errorHint(%q, %v) = %q, want it to mention %q", tc.label, tc.err, got, tc.want)
			}
		})
	}
}
