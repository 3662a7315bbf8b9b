package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
	if !strings.Contains(String(), Version) {
		t.Fatalf("version string should contain %q", Version)
	}
}
