package i18n

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestSprintfUsesLocaleCatalog(t *testing.T) {
	if got := Sprintf(PortugueseBR, KeyUserPlural); got != "Usuários" {
		t.Fatalf("expected Usuários, got %q", got)
	}
	if got := Sprintf(EnglishUS, KeyUserSingular); got != "User" {
		t.Fatalf("expected User, got %q", got)
	}
	got := Sprintf(PortugueseBR, KeyLastAccess, "01/02/2026")
	if !strings.Contains(got, "<b>01/02/2026</b>") {
		t.Fatalf("expected date interpolated, got %q", got)
	}
	got = Sprintf(PortugueseBR, KeySpaceSealToExpire, "Teatro", "Selo", 3, "http://x/espaco/edita/1/")
	if !strings.Contains(got, "para expirar em 3 dia(s)") || !strings.Contains(got, "href='http://x/espaco/edita/1/'") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	if tag := FromAcceptLanguage("en-GB,en;q=0.8", PortugueseBR); tag != EnglishUS {
		t.Fatalf("expected en-US, got %s", tag)
	}
	if tag := FromAcceptLanguage("pt", EnglishUS); tag != PortugueseBR {
		t.Fatalf("expected pt-BR, got %s", tag)
	}
	if tag := FromAcceptLanguage("", EnglishUS); tag != EnglishUS {
		t.Fatalf("expected fallback, got %s", tag)
	}
	if tag := FromAcceptLanguage(";;;", PortugueseBR); tag != PortugueseBR {
		t.Fatalf("expected fallback for garbage, got %s", tag)
	}
}

func TestParse(t *testing.T) {
	if tag, ok := Parse("pt_BR"); !ok || tag != PortugueseBR {
		t.Fatalf("expected pt-BR, got %s ok=%v", tag, ok)
	}
	if _, ok := Parse(""); ok {
		t.Fatal("empty locale should not parse")
	}
	if tag := Match(language.English); tag != EnglishUS {
		t.Fatalf("expected en-US, got %s", tag)
	}
	if tag := Match(); tag != Default() {
		t.Fatalf("expected default, got %s", tag)
	}
}
