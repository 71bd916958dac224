package naming

import "testing"

func taken(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

func TestExact_AlwaysReturnsCandidate(t *testing.T) {
	if got := Exact("id_rsa", taken("id_rsa")); got != "id_rsa" {
		t.Fatalf("Exact should not rename, got %q", got)
	}
}

func TestSuffix_FreeNameUnchanged(t *testing.T) {
	if got := Suffix("id_rsa", taken()); got != "id_rsa" {
		t.Fatalf("expected id_rsa, got %q", got)
	}
}

func TestSuffix_PicksFirstFreeSuffix(t *testing.T) {
	if got := Suffix("id_rsa", taken("id_rsa")); got != "id_rsa-2" {
		t.Fatalf("expected id_rsa-2, got %q", got)
	}
	if got := Suffix("id_rsa", taken("id_rsa", "id_rsa-2", "id_rsa-3")); got != "id_rsa-4" {
		t.Fatalf("expected id_rsa-4, got %q", got)
	}
}

func TestSuffix_SuffixedNamesCanCollideAgain(t *testing.T) {
	// A candidate that itself looks suffixed still resolves against the
	// taken set as-is; name-based identity is intentional.
	if got := Suffix("key-2", taken("key-2")); got != "key-2-2" {
		t.Fatalf("expected key-2-2, got %q", got)
	}
}
