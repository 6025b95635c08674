package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseProject(t *testing.T) {
	cases := map[string]Project{
		"backend":  ProjectBackend,
		"Frontend": ProjectFrontend,
		"OPS":      ProjectOps,
	}
	for in, want := range cases {
		got, err := ParseProject(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %s want %s", in, got, want)
		}
	}
	_, err := ParseProject("marketing")
	var ue *UnknownValueError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownValueError, got %v", err)
	}
	if ue.Domain != "project" || len(ue.Valid) != 3 {
		t.Fatalf("unexpected error detail: %+v", ue)
	}
}

func TestVocabularyValuesAreCopies(t *testing.T) {
	vals := Projects.Values()
	vals[0] = "CHANGED"
	if _, ok := Projects.Canonical("backend"); !ok {
		t.Fatalf("vocabulary mutated through Values()")
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{
		"2024-05-01T10:00:00Z",
		"2024-05-01T10:00:00+02:00",
		"2024-05-01T10:00:00.123Z",
		"2024-05-01T10:00:00",
		"2024-05-01T10:00",
		"2024-05-01",
	} {
		if _, err := ParseTimestamp(in); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
	}
	got, _ := ParseTimestamp("2024-05-01T10:00:00+02:00")
	if !got.UTC().Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("offset not applied: %s", got.UTC())
	}
	for _, in := range []string{"tomorrow", "2024-13-01", "01/05/2024", ""} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}
