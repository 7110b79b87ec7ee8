package smartinsert

import "testing"

func TestResolveProfileBuckets(t *testing.T) {
	cases := map[string]Profile{
		"en":        CasedWhitespace,
		"en-US":     CasedWhitespace,
		"es":        CasedWhitespace,
		"ar":        UncasedWhitespace,
		"ko":        UncasedWhitespace,
		"zh-Hans":   NoBoundarySpacing,
		"zh_TW":     NoBoundarySpacing,
		"ja":        NoBoundarySpacing,
		"tr":        Conservative,
		"auto":      Conservative,
		"":          Conservative,
	}
	for lang, want := range cases {
		if got := ResolveProfile(lang); got != want {
			t.Errorf("ResolveProfile(%q) = %v, want %v", lang, got, want)
		}
	}
}

func TestTransformCapitalizesAfterSentenceTerminator(t *testing.T) {
	ctx := Context{Before: '.', After: 0}
	got := Transform("hello there", "en", ctx)
	if got != " Hello there" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformDecapitalizesTitleCaseMidSentence(t *testing.T) {
	ctx := Context{Before: ',', After: 0}
	got := Transform("Hello there", "en", ctx)
	if got != " hello there" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformLeavesAcronymAlone(t *testing.T) {
	ctx := Context{Before: ',', After: 0}
	got := Transform("NASA launched", "en", ctx)
	if got != " NASA launched" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformStripsTrailingPeriodWhenContinuationLowercase(t *testing.T) {
	ctx := Context{Before: ' ', After: 'a'}
	got := Transform("open the door.", "en", ctx)
	if got != "open the door " {
		t.Fatalf("got %q", got)
	}
}

func TestTransformKeepsTrailingPeriodForAbbreviation(t *testing.T) {
	ctx := Context{Before: ' ', After: 'a'}
	got := Transform("meet the U.S.", "en", ctx)
	if got != "meet the U.S. " {
		t.Fatalf("got %q", got)
	}
}

func TestTransformAddsBoundarySpacingBothSides(t *testing.T) {
	ctx := Context{Before: 'x', After: 'y'}
	got := Transform("mid", "en", ctx)
	if got != " mid " {
		t.Fatalf("got %q", got)
	}
}

func TestTransformNoLeadingSpaceWhenReplacingSelection(t *testing.T) {
	ctx := Context{Before: 'x', After: 0, HasSelection: true}
	got := Transform("mid", "en", ctx)
	if got != "mid" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformUncasedWhitespaceDoesNotChangeCase(t *testing.T) {
	ctx := Context{Before: '.', After: 0}
	got := Transform("Hello", "ar", ctx)
	if got != " Hello" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformNoBoundarySpacingCompactsHanToHan(t *testing.T) {
	got := Transform("你好 世界", "zh", Context{})
	if got != "你好世界" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformNoBoundarySpacingCompactsAsciiCjkBoundary(t *testing.T) {
	got := Transform("Open AI 发布", "zh", Context{})
	if got != "Open AI发布" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformNoBoundarySpacingPreservesAsciiSpacing(t *testing.T) {
	got := Transform("Open AI works", "zh", Context{})
	if got != "Open AI works" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformConservativeAppendsTrailingSpaceAtBoundary(t *testing.T) {
	got := Transform("hello", "tr", Context{After: 'x'})
	if got != "hello " {
		t.Fatalf("got %q", got)
	}
}

func TestTransformConservativeLeavesTextAloneAtBoundary(t *testing.T) {
	got := Transform("hello", "tr", Context{After: ' '})
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestCollapsePunctuationArtifactsFixedPoint(t *testing.T) {
	in := "Wait. . . what. , next"
	out := CollapsePunctuationArtifacts(in)
	if out != CollapsePunctuationArtifacts(out) {
		t.Fatalf("collapse not idempotent: %q -> %q", out, CollapsePunctuationArtifacts(out))
	}
}

func TestCollapsePunctuationArtifactsSentenceToClause(t *testing.T) {
	got := CollapsePunctuationArtifacts("done. , then more")
	if got != "done, then more" {
		t.Fatalf("got %q", got)
	}
}

func TestCollapsePunctuationArtifactsDuplicateDash(t *testing.T) {
	got := CollapsePunctuationArtifacts("well - - actually")
	if got != "well - actually" {
		t.Fatalf("got %q", got)
	}
}

func TestCollapsePunctuationArtifactsConflictingMarks(t *testing.T) {
	got := CollapsePunctuationArtifacts("done? ! for real")
	if got != "done! for real" {
		t.Fatalf("got %q", got)
	}
}
