package sanitize

import "testing"

func TestKeyNormalizesCompositionButKeepsCase(t *testing.T) {
	decomposed := "Mari\u0301a"
	if got := Key("  " + decomposed + " "); got != "Mar\u00eda" {
		t.Fatalf("expected NFC form, got %q", got)
	}
	if Key("providencia") == Key("Providencia") {
		t.Fatal("keys must stay case-sensitive")
	}
}

func TestNameCollapsesWhitespace(t *testing.T) {
	if got := Name("  Ana   María\tSoto "); got != "Ana María Soto" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestTextStripsTags(t *testing.T) {
	if got := Text("<b>Disponible</b> &lt;script&gt;x&lt;/script&gt; ya"); got != "Disponible x ya" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Ana.Soto@Example.CL "); got != "ana.soto@example.cl" {
		t.Fatalf("unexpected email %q", got)
	}
}
