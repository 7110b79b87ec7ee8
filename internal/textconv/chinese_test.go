package textconv

import "testing"

func TestConvertPreservesRuneCount(t *testing.T) {
	inputs := []string{
		"国为这对学会",
		"Open AI 国 is 学 great",
		"",
		"no chinese characters here",
	}
	for _, in := range inputs {
		for _, target := range []Variant{Simplified, Traditional} {
			out := Convert(in, target)
			if len([]rune(out)) != len([]rune(in)) {
				t.Errorf("Convert(%q, %v) changed rune count: got %q", in, target, out)
			}
		}
	}
}

func TestConvertMapsKnownCharacters(t *testing.T) {
	if got := Convert("国", Traditional); got != "國" {
		t.Errorf("expected 國, got %q", got)
	}
	if got := Convert("國", Simplified); got != "国" {
		t.Errorf("expected 国, got %q", got)
	}
}

func TestConvertLeavesUnmappedRunesUnchanged(t *testing.T) {
	if got := Convert("Open AI", Traditional); got != "Open AI" {
		t.Errorf("expected ASCII text unchanged, got %q", got)
	}
}

func TestConvertForLanguageDispatch(t *testing.T) {
	if got := ConvertForLanguage("国", "zh-Hant"); got != "國" {
		t.Errorf("expected zh-Hant to convert to traditional, got %q", got)
	}
	if got := ConvertForLanguage("國", "zh-Hans"); got != "国" {
		t.Errorf("expected zh-Hans to convert to simplified, got %q", got)
	}
	if got := ConvertForLanguage("国", "en"); got != "国" {
		t.Errorf("expected non-Chinese language to leave text untouched, got %q", got)
	}
}
