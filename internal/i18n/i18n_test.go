package i18n

import "testing"

func TestT_TranslatesKnownID(t *testing.T) {
	SetLang("en")
	if got := T("restore.success"); got != "Restore complete." {
		t.Fatalf("unexpected translation: %q", got)
	}

	SetLang("de")
	if got := T("restore.success"); got != "Wiederherstellung abgeschlossen." {
		t.Fatalf("unexpected german translation: %q", got)
	}
	SetLang("en")
}

func TestT_UnknownIDFallsBackToID(t *testing.T) {
	SetLang("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("expected the ID itself, got %q", got)
	}
}

func TestT_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	SetLang("tlh")
	if got := T("audit.empty"); got != "Audit log is empty." {
		t.Fatalf("expected english fallback, got %q", got)
	}
	SetLang("en")
}
