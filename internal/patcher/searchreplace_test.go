package patcher

import (
	"sort"
	"testing"

	"texpatch/model"
)

// applyEdits replays snapshot-coordinate edits the way a buffer transaction
// would, back to front so earlier offsets stay valid.
func applyEdits(text string, edits []model.Edit) string {
	sorted := make([]model.Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From > sorted[j].From })
	for _, e := range sorted {
		text = text[:e.From] + e.Insert + text[e.To:]
	}
	return text
}

func TestApplySearchReplace_SingleBlock(t *testing.T) {
	original := "\\title{Draft}\n\\author{Anonymous}\n"
	blocks := []model.SearchReplaceBlock{{Search: "Draft", Replace: "Final"}}

	res := ApplySearchReplace(original, blocks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	want := "\\title{Final}\n\\author{Anonymous}\n"
	if res.FinalContent != want {
		t.Errorf("got %q, want %q", res.FinalContent, want)
	}
	if res.WholeReplace {
		t.Error("single clean block should map to snapshot coordinates")
	}
	if got := applyEdits(original, res.Edits); got != want {
		t.Errorf("edits replayed against snapshot give %q, want %q", got, want)
	}
}

func TestApplySearchReplace_NotFound(t *testing.T) {
	res := ApplySearchReplace("abc", []model.SearchReplaceBlock{{Search: "zzz", Replace: "y"}})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedIndex != 0 {
		t.Errorf("expected FailedIndex 0, got %d", res.FailedIndex)
	}
}

func TestApplySearchReplace_Ambiguous(t *testing.T) {
	original := "x = 1\nx = 1\n"
	res := ApplySearchReplace(original, []model.SearchReplaceBlock{{Search: "x = 1", Replace: "x = 2"}})
	if res.Success {
		t.Fatal("expected failure for ambiguous search text")
	}
	if res.FailedIndex != 0 {
		t.Errorf("expected FailedIndex 0, got %d", res.FailedIndex)
	}
}

func TestApplySearchReplace_AbortsAtFailingBlock(t *testing.T) {
	original := "alpha beta gamma"
	blocks := []model.SearchReplaceBlock{
		{Search: "alpha", Replace: "ALPHA"},
		{Search: "missing", Replace: "x"},
		{Search: "gamma", Replace: "GAMMA"},
	}

	res := ApplySearchReplace(original, blocks)
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

func TestApplySearchReplace_EmptyBlockList(t *testing.T) {
	original := "unchanged"
	res := ApplySearchReplace(original, nil)
	if !res.Success {
		t.Fatalf("empty block list should be a no-op success, got: %s", res.Error)
	}
	if res.FinalContent != original {
		t.Errorf("content should be unchanged, got %q", res.FinalContent)
	}
	if len(res.Edits) != 0 {
		t.Errorf("no edits expected, got %d", len(res.Edits))
	}
}

func TestApplySearchReplace_LaterBlockSeesEarlierEffect(t *testing.T) {
	// Block 2 matches text block 1 introduced, so the result cannot be
	// expressed in snapshot coordinates and degrades to whole replacement.
	original := "hello world"
	blocks := []model.SearchReplaceBlock{
		{Search: "world", Replace: "planet"},
		{Search: "planet", Replace: "planet earth"},
	}

	res := ApplySearchReplace(original, blocks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.FinalContent != "hello planet earth" {
		t.Errorf("got %q", res.FinalContent)
	}
	if !res.WholeReplace {
		t.Error("expected WholeReplace when a block matches inserted text")
	}
	if res.Edits != nil {
		t.Error("edits must be nil when whole replacement is required")
	}
}

func TestApplySearchReplace_DisjointBlocksKeepSnapshotCoordinates(t *testing.T) {
	original := "aa bb cc dd"
	blocks := []model.SearchReplaceBlock{
		{Search: "bb", Replace: "B"},       // shrinks
		{Search: "dd", Replace: "dddddd"},  // grows, after the shrink
		{Search: "aa", Replace: "aaa"},     // before both
	}

	res := ApplySearchReplace(original, blocks)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	want := "aaa B cc dddddd"
	if res.FinalContent != want {
		t.Errorf("got %q, want %q", res.FinalContent, want)
	}
	if res.WholeReplace {
		t.Error("disjoint blocks should stay in snapshot coordinates")
	}
	if got := applyEdits(original, res.Edits); got != want {
		t.Errorf("edits replayed against snapshot give %q, want %q", got, want)
	}
}

func TestApplySearchReplace_AmbiguityCheckedAgainstRunningText(t *testing.T) {
	// The first block makes the second block's search text ambiguous.
	original := "one two"
	blocks := []model.SearchReplaceBlock{
		{Search: "one", Replace: "two"},
		{Search: "two", Replace: "three"},
	}

	res := ApplySearchReplace(original, blocks)
	if res.Success {
		t.Fatal("expected failure: search text became ambiguous after block 1")
	}
	if res.FailedIndex != 1 {
		t.Errorf("expected FailedIndex 1, got %d", res.FailedIndex)
	}
}

func TestApplySearchReplace_EmptySearch(t *testing.T) {
	res := ApplySearchReplace("abc", []model.SearchReplaceBlock{{Search: "", Replace: "x"}})
	if res.Success {
		t.Fatal("expected failure for empty search text")
	}
}
