package services_test

import (
	"errors"
	"strings"
	"testing"

	"persondiscovery/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "submission", "duplicate", "copy failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"submission", "duplicate", "copy failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestClassification(t *testing.T) {
	cases := []struct {
		err   error
		kind  string
		fatal bool
		stale bool
	}{
		{services.Wrap(services.ErrConfiguration, "catalog", "resolve", "queue missing", nil), "configuration", true, false},
		{services.Wrap(services.ErrNotFound, "store", "layer", "", nil), "stale", false, true},
		{services.Wrap(services.ErrAlreadyDeleted, "store", "layer", "", nil), "stale", false, true},
		{services.Wrap(services.ErrValidation, "store", "description", "", nil), "validation", false, false},
		{errors.New("network"), "transient", false, false},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
		if got := services.IsStale(tc.err); got != tc.stale {
			t.Fatalf("IsStale(%v) = %v, want %v", tc.err, got, tc.stale)
		}
	}
	if services.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
}
