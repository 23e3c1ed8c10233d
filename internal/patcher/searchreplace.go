package patcher

import (
	"fmt"
	"sort"
	"strings"

	"texpatch/model"
)

// SearchReplaceResult is the outcome of one search/replace attempt.
//
// On success, Edits holds the collected substitutions re-expressed in the
// coordinate space of the original snapshot, ready to be batched into one
// buffer transaction. When a block matched text that an earlier block
// introduced, the substitutions cannot be expressed against the snapshot;
// Edits is then nil and WholeReplace is set, telling the caller to install
// FinalContent with a single whole-content replacement instead. Either way
// the live document sees exactly one atomic transaction.
type SearchReplaceResult struct {
	Success      bool
	FinalContent string
	Error        string
	FailedIndex  int // 0-based index of the failing block, -1 on success
	Edits        []model.Edit
	WholeReplace bool
}

// ApplySearchReplace resolves each block, in order, against a running copy
// of originalText. A block's search text must occur exactly once in the
// running copy at the time the block is processed: zero occurrences or two
// or more abort the whole attempt at that block's index.
func ApplySearchReplace(originalText string, blocks []model.SearchReplaceBlock) SearchReplaceResult {
	running := originalText
	var edits []model.Edit
	whole := false

	for i, b := range blocks {
		if b.Search == "" {
			return SearchReplaceResult{
				Error:       fmt.Sprintf("block %d: empty search text", i+1),
				FailedIndex: i,
			}
		}
		switch n := strings.Count(running, b.Search); {
		case n == 0:
			return SearchReplaceResult{
				Error:       fmt.Sprintf("block %d: search text not found", i+1),
				FailedIndex: i,
			}
		case n > 1:
			return SearchReplaceResult{
				Error:       fmt.Sprintf("block %d: search text ambiguous (%d occurrences)", i+1, n),
				FailedIndex: i,
			}
		}

		rFrom := strings.Index(running, b.Search)
		rTo := rFrom + len(b.Search)

		if !whole {
			origFrom, ok := mapToOriginal(edits, rFrom, rTo)
			if ok {
				edits = insertEdit(edits, model.Edit{
					From:   origFrom,
					To:     origFrom + len(b.Search),
					Insert: b.Replace,
				})
			} else {
				whole = true
				edits = nil
			}
		}

		running = running[:rFrom] + b.Replace + running[rTo:]
	}

	if len(blocks) == 0 {
		return SearchReplaceResult{Success: true, FinalContent: originalText, FailedIndex: -1}
	}
	return SearchReplaceResult{
		Success:      true,
		FinalContent: running,
		FailedIndex:  -1,
		Edits:        edits,
		WholeReplace: whole,
	}
}

// mapToOriginal translates a match range in the running text back to the
// original snapshot's coordinates, given the edits already collected
// (sorted by From, non-overlapping, all in original coordinates). The
// translation fails when the range touches text inserted by one of those
// edits.
func mapToOriginal(edits []model.Edit, rFrom, rTo int) (int, bool) {
	shift := 0
	for _, e := range edits {
		eRunStart := e.From + shift
		eRunEnd := eRunStart + len(e.Insert)
		if rFrom >= eRunEnd {
			shift += len(e.Insert) - (e.To - e.From)
			continue
		}
		if rTo <= eRunStart {
			break
		}
		return 0, false
	}
	return rFrom - shift, true
}

func insertEdit(edits []model.Edit, e model.Edit) []model.Edit {
	edits = append(edits, e)
	sort.Slice(edits, func(i, j int) bool { return edits[i].From < edits[j].From })
	return edits
}
