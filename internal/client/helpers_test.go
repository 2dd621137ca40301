package client

import (
	"strings"
	"testing"
)

func replaceOnce(t *testing.T, s, old string) string {
	t.Helper()
	if !strings.Contains(s, old) {
		t.Fatalf("fixture does not contain %q", old)
	}
	return strings.Replace(s, old, "", 1)
}
