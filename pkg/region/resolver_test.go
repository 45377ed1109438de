package region

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testDefinitions() []Definition {
	return []Definition{
		{ID: "bestsellers", TTL: time.Hour, Pattern: "/api/v1/bestsellers/{D}"},
		{ID: "users", TTL: 0, Pattern: "/api/v1/users/{S}"},
		{ID: "catchall", TTL: time.Minute, Pattern: "/api/*"},
	}
}

func TestBuild_Resolve(t *testing.T) {
	r, err := Build("ns", testDefinitions(), false)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/bestsellers/1", "bestsellers"},
		{"/api/v1/users/alice", "users"},
		{"/api/v1/bestsellers/x", "catchall"},
		{"/something", PassthroughID},
		{"someUnRegisteredURI", PassthroughID},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.path); got.ID != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got.ID, tt.want)
		}
	}

	if got := r.Resolve("/nope"); got != Passthrough() {
		t.Errorf("unmatched path should resolve to the passthrough region, got %+v", got)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestBuild_DeclarationOrderWins(t *testing.T) {
	r, err := Build("ns", []Definition{
		{ID: "wide", Pattern: "/api/*"},
		{ID: "narrow", Pattern: "/api/v1/users/{S}"},
	}, false)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := r.Resolve("/api/v1/users/bob"); got.ID != "wide" {
		t.Errorf("Resolve() = %q, want wide", got.ID)
	}
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantMsg string
	}{
		{
			name:    "duplicate id",
			defs:    []Definition{{ID: "a", Pattern: "/a"}, {ID: "a", Pattern: "/b"}},
			wantMsg: "duplicated region with name 'a'",
		},
		{
			name:    "duplicate after trimming",
			defs:    []Definition{{ID: "a", Pattern: "/a"}, {ID: " a ", Pattern: "/b"}},
			wantMsg: "duplicated region with name 'a'",
		},
		{
			name:    "colon",
			defs:    []Definition{{ID: "a:b", Pattern: "/a"}},
			wantMsg: "should not contain colon",
		},
		{
			name:    "empty id",
			defs:    []Definition{{ID: "  ", Pattern: "/a"}},
			wantMsg: "should not be empty",
		},
		{
			name:    "underscore",
			defs:    []Definition{{ID: "_hidden", Pattern: "/a"}},
			wantMsg: "should not start with underscore",
		},
		{
			name:    "negative ttl",
			defs:    []Definition{{ID: "a", TTL: -time.Second, Pattern: "/a"}},
			wantMsg: "ttl should not be negative",
		},
		{
			name:    "bad pattern",
			defs:    []Definition{{ID: "a", Pattern: ""}},
			wantMsg: "pattern should not be empty",
		},
		{
			name:    "no regions",
			defs:    nil,
			wantMsg: "no regions configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("ns", tt.defs, false)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Build() error = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestBuild_AllowEmpty(t *testing.T) {
	r, err := Build("ns", nil, true)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := r.Resolve("/anything"); got.ID != PassthroughID {
		t.Errorf("Resolve() = %q, want passthrough", got.ID)
	}
}

func TestNewResolver_ReservedID(t *testing.T) {
	_, err := NewResolver([]Binding{{Matcher: MustCompileMatcher("/x"), Region: Passthrough()}})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestResolver_ByID(t *testing.T) {
	r, err := Build("ns", testDefinitions(), false)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	reg, err := r.ByID("users")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if reg.ID != "users" || reg.Key("/api/v1/users/a") != "ns:users:/api/v1/users/a" {
		t.Errorf("unexpected region %+v", reg)
	}

	if _, err := r.ByID(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ByID(\"\") error = %v, want ErrInvalidArgument", err)
	}
	if _, err := r.ByID("missing"); !errors.Is(err, ErrRegionNotFound) || !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ByID(missing) error = %v, want ErrRegionNotFound", err)
	}
	if _, ok := r.Lookup(PassthroughID); ok {
		t.Error("passthrough region should not be registered")
	}
}

func TestResolver_Regions(t *testing.T) {
	r, err := Build("ns", testDefinitions(), false)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	regions := r.Regions()
	want := []string{"bestsellers", "users", "catchall"}
	for i, reg := range regions {
		if reg.ID != want[i] {
			t.Errorf("Regions()[%d] = %q, want %q", i, reg.ID, want[i])
		}
	}
}
