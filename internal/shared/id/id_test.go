package id

import (
	"strings"
	"testing"
)

func TestPrefixedIDs(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"sandbox", NewSandboxID().String(), SandboxPrefix},
		{"task", NewTaskID().String(), TaskPrefix},
		{"request", NewRequestID().String(), RequestPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.id, tt.prefix+"_") {
				t.Errorf("ID %q missing prefix %q", tt.id, tt.prefix)
			}
			if !IsValid(tt.id, tt.prefix) {
				t.Errorf("ID %q failed validation", tt.id)
			}
		})
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[SandboxID]bool)
	for i := 0; i < 1000; i++ {
		id := NewSandboxID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIsValidRejectsWrongPrefix(t *testing.T) {
	id := NewSandboxID().String()
	if IsValid(id, TaskPrefix) {
		t.Errorf("sandbox ID %q validated against task prefix", id)
	}
	if IsValid("sbx_not-a-ulid", SandboxPrefix) {
		t.Error("malformed ULID validated")
	}
}
