package model

// Mode identifies the representation a suggestion uses.
type Mode string

const (
	// ModeDiff is the preferred representation: unified-diff hunks.
	ModeDiff Mode = "diff"
	// ModeSearchReplace is the fallback representation: exact text blocks.
	ModeSearchReplace Mode = "search_replace"
	// ModeFull replaces the entire document in one step.
	ModeFull Mode = "full"
)

// SearchReplaceBlock is one exact-match substitution. Search is matched
// literally against the document text, never as a regex.
type SearchReplaceBlock struct {
	Search      string `json:"search"`
	Replace     string `json:"replace"`
	Explanation string `json:"explanation,omitempty"`
}

// Proposal is the raw edit proposal received from the collaborator,
// before it is bound to a document snapshot. Exactly one of FullLatex,
// Hunks or Blocks is expected to be populated.
type Proposal struct {
	Explanation string               `json:"explanation"`
	FullLatex   string               `json:"fullLatex,omitempty"`
	Hunks       []string             `json:"hunks,omitempty"`
	Blocks      []SearchReplaceBlock `json:"search_replace_blocks,omitempty"`
}

// Mode reports which representation the proposal carries.
func (p *Proposal) Mode() Mode {
	switch {
	case len(p.Hunks) > 0:
		return ModeDiff
	case len(p.Blocks) > 0:
		return ModeSearchReplace
	default:
		return ModeFull
	}
}

// Edit is one range replacement expressed in byte offsets of a document
// snapshot: the text at [From, To) is replaced by Insert.
type Edit struct {
	From   int
	To     int
	Insert string
}

// Message is one turn of the conversation context handed to the
// collaborator when requesting a fallback rewrite.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Summary holds the outcome of a run for display.
type Summary struct {
	Applied  bool
	Rejected bool
	Mode     Mode
	Message  string
}
