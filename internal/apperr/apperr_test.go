package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Classified(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Validation("energy %d out of range", 11), KindValidation},
		{NotFound("segment %s", "abc"), KindNotFound},
		{Conflict("open segment"), KindConflict},
		{Policy("today only"), KindPolicy},
		{Dependency(errors.New("disk"), "insert segment"), KindDependency},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.kind {
			t.Errorf("KindOf(%v) = %s, want %s", c.err, got, c.kind)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("start: %w", Conflict("already open"))
	if !Is(err, KindConflict) {
		t.Fatalf("expected conflict through wrap, got %s", KindOf(err))
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected internal for plain errors")
	}
	if KindOf(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
}

func TestDependency_UnwrapsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Dependency(cause, "insert state log")
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "insert state log: database is locked" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
