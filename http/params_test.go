package http

import "testing"

func TestParseParams(t *testing.T) {
	p := ParseParams("a=1&b=two&empty=&flag")

	if p.Len() != 4 {
		t.Errorf("Expected 4 pairs, got %d", p.Len())
	}

	v, found := p.Get("a")
	if !found || v != "1" {
		t.Errorf("Expected a=1, got %q (%v)", v, found)
	}
	v, _ = p.Get("empty")
	if v != "" {
		t.Errorf("Expected empty value, got %q", v)
	}
	v, found = p.Get("flag")
	if !found || v != "" {
		t.Errorf("Expected flag present with empty value, got %q (%v)", v, found)
	}
}

func TestParamsLastInsertionWins(t *testing.T) {
	p := NewParams()
	p.parseInto("user=query")
	p.parseInto("user=body")

	v, _ := p.Get("user")
	if v != "body" {
		t.Errorf("Expected body value to shadow query value, got %q", v)
	}

	if p.Len() != 2 {
		t.Errorf("Expected both pairs retained, got %d", p.Len())
	}
}

func TestParamNamesCaseFolded(t *testing.T) {
	p := ParseParams("Name=x")

	if _, found := p.Get("name"); !found {
		t.Error("Expected case-folded lookup to find Name")
	}
}

func TestRenderParamsRoundTrip(t *testing.T) {
	original := "a=1&b=two&c="

	rendered := RenderParams(ParseParams(original))
	if rendered != original {
		t.Errorf("Expected %q, got %q", original, rendered)
	}

	reparsed := ParseParams(rendered)
	if reparsed.Len() != 3 {
		t.Errorf("Expected 3 pairs after round trip, got %d", reparsed.Len())
	}
}
