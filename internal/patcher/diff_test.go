package patcher

import (
	"strings"
	"testing"
)

func TestApplyDiff_SingleHunk(t *testing.T) {
	original := "A\nB\nC\n"
	hunks := []string{"@@ -1,3 +1,3 @@\n A\n-B\n+B2\n C"}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.FinalContent != "A\nB2\nC\n" {
		t.Errorf("unexpected content: %q", res.FinalContent)
	}
}

func TestApplyDiff_EmptyHunkList(t *testing.T) {
	original := "A\nB\nC\n"
	res := ApplyDiff(original, nil)
	if !res.Success {
		t.Fatalf("empty hunk list should be a no-op success, got: %s", res.Error)
	}
	if res.FinalContent != original {
		t.Errorf("content should be unchanged, got %q", res.FinalContent)
	}
}

func TestApplyDiff_SequentialHunks(t *testing.T) {
	original := "one\ntwo\nthree\nfour\nfive\n"
	hunks := []string{
		"@@ -1,2 +1,2 @@\n one\n-two\n+TWO",
		"@@ -4,2 +4,2 @@\n four\n-five\n+FIVE",
	}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	want := "one\nTWO\nthree\nfour\nFIVE\n"
	if res.FinalContent != want {
		t.Errorf("got %q, want %q", res.FinalContent, want)
	}
}

func TestApplyDiff_FailureReportsIndexAndDiscardsProgress(t *testing.T) {
	original := "one\ntwo\nthree\n"
	hunks := []string{
		"@@ -1,2 +1,2 @@\n one\n-two\n+TWO",              // would succeed
		"@@ -1,2 +1,2 @@\n nothing\n-like this\n+at all", // cannot apply
	}

	res := ApplyDiff(original, hunks)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedIndex != 1 {
		t.Errorf("expected FailedIndex 1, got %d", res.FailedIndex)
	}
	if res.FinalContent != "" {
		t.Errorf("failed attempt must not leak partial content, got %q", res.FinalContent)
	}
}

func TestApplyDiff_CountMismatchFailsAtThatHunk(t *testing.T) {
	// Hunk 2 declares line counts that do not match its body. The applier
	// is attempted anyway and must fail at index 1.
	original := "A\nB\nC\n"
	hunks := []string{
		"@@ -1,1 +1,1 @@\n-A\n+A1",
		"@@ -2,5 +2,5 @@\n-B\n+B2",
	}

	if v := Validate(hunks); v.Valid || v.InvalidIndex != 1 {
		t.Fatalf("validator should flag hunk index 1, got %+v", v)
	}

	res := ApplyDiff(original, hunks)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedIndex != 1 {
		t.Errorf("expected FailedIndex 1, got %d", res.FailedIndex)
	}
}

func TestApplyDiff_RelocatedHunk(t *testing.T) {
	// The header points at the wrong line but the block exists verbatim
	// elsewhere; the strict path relocates it by exact search.
	original := "intro\nalpha\nbeta\ngamma\n"
	hunks := []string{"@@ -20,3 +20,3 @@\n alpha\n-beta\n+BETA\n gamma"}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.FinalContent != "intro\nalpha\nBETA\ngamma\n" {
		t.Errorf("unexpected content: %q", res.FinalContent)
	}
}

func TestApplyDiff_FuzzyRecoversFromContextDrift(t *testing.T) {
	// The document's context line differs slightly from what the hunk
	// recorded, so the strict path misses; the fuzzy retry absorbs the
	// drift.
	original := "\\section{Results}\nThe quick brown fox jumps.\nIt was fast.\nEnd.\n"
	hunks := []string{"@@ -1,3 +1,3 @@\n \\section{Result}\n-The quick brown fox jumps.\n+The slow brown fox rests.\n It was fast."}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected fuzzy success, got: %s", res.Error)
	}
	if !strings.Contains(res.FinalContent, "slow brown fox rests") {
		t.Errorf("replacement missing from %q", res.FinalContent)
	}
	if strings.Contains(res.FinalContent, "quick brown fox") {
		t.Errorf("old line still present in %q", res.FinalContent)
	}
}

func TestApplyDiff_InsertionHunk(t *testing.T) {
	original := "A\nB\n"
	hunks := []string{"@@ -1,0 +2,1 @@\n+A.5"}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.FinalContent != "A\nA.5\nB\n" {
		t.Errorf("unexpected content: %q", res.FinalContent)
	}
}

func TestApplyDiff_ArtifactHunkSkipped(t *testing.T) {
	original := "A\nB\n"
	hunks := []string{
		"diff --git a/doc.tex b/doc.tex\nindex 1111111..2222222 100644",
		"@@ -2,1 +2,1 @@\n-B\n+B2",
	}

	res := ApplyDiff(original, hunks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.FinalContent != "A\nB2\n" {
		t.Errorf("unexpected content: %q", res.FinalContent)
	}
}

func TestApplyDiff_Stateless(t *testing.T) {
	original := "A\nB\nC\n"
	hunks := []string{"@@ -1,3 +1,3 @@\n A\n-B\n+B2\n C"}

	first := ApplyDiff(original, hunks)
	if !first.Success {
		t.Fatalf("first run failed: %s", first.Error)
	}
	// Re-running against the produced content is deterministic: the hunk
	// no longer matches cleanly but the engines hold no state, so two
	// identical runs agree.
	second := ApplyDiff(first.FinalContent, hunks)
	third := ApplyDiff(first.FinalContent, hunks)
	if second.Success != third.Success || second.FinalContent != third.FinalContent {
		t.Error("identical inputs must produce identical results")
	}
}

func TestRenumber_CorrectsDriftedHeader(t *testing.T) {
	snapshot := "preamble\n\\begin{document}\nHello world.\n\\end{document}\n"
	hunks := []string{"@@ -90,1 +90,1 @@\n-Hello world.\n+Hello there."}

	fixed, err := Renumber(snapshot, hunks)
	if err != nil {
		t.Fatalf("Renumber failed: %v", err)
	}
	if !strings.HasPrefix(fixed, "@@ -3,1 +3,1 @@\n") {
		t.Errorf("header not renumbered: %q", fixed)
	}
}

func TestRenumber_UnlocatableBlock(t *testing.T) {
	if _, err := Renumber("A\nB\n", []string{"@@ -1,1 +1,1 @@\n-Z\n+Y"}); err == nil {
		t.Fatal("expected error for unlocatable block")
	}
}
