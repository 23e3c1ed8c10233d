package editor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/neovim/go-client/nvim"

	"texpatch/model"
)

// NvimBuffer is a Buffer backed by the current buffer of a running Neovim
// instance. Batched edits execute as a single RPC batch, which Neovim
// groups into one undo step.
type NvimBuffer struct {
	v   *nvim.Nvim
	buf nvim.Buffer
}

// DialNvim connects to the Neovim instance named by the NVIM (or legacy
// NVIM_LISTEN_ADDRESS) environment variable and binds to its current
// buffer.
func DialNvim() (*NvimBuffer, error) {
	addr := os.Getenv("NVIM")
	if addr == "" {
		addr = os.Getenv("NVIM_LISTEN_ADDRESS")
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: NVIM socket not set", ErrUnavailable)
	}

	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, addr, err)
	}

	buf, err := v.CurrentBuffer()
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("%w: current buffer: %v", ErrUnavailable, err)
	}

	return &NvimBuffer{v: v, buf: buf}, nil
}

// Close disconnects from Neovim.
func (b *NvimBuffer) Close() {
	if b.v != nil {
		b.v.Close()
	}
}

func (b *NvimBuffer) Text() (string, error) {
	lines, err := b.v.BufferLines(b.buf, 0, -1, true)
	if err != nil {
		return "", fmt.Errorf("%w: read lines: %v", ErrUnavailable, err)
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (b *NvimBuffer) ReplaceAll(text string) error {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	byteLines := make([][]byte, len(lines))
	for i, line := range lines {
		byteLines[i] = []byte(line)
	}
	if err := b.v.SetBufferLines(b.buf, 0, -1, true, byteLines); err != nil {
		return fmt.Errorf("%w: set lines: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *NvimBuffer) ReplaceRange(from, to int, insert string) error {
	return b.ApplyEdits([]model.Edit{{From: from, To: to, Insert: insert}})
}

// ApplyEdits issues every SetBufferText call in one RPC batch, back to
// front so earlier offsets stay valid while the batch executes.
func (b *NvimBuffer) ApplyEdits(edits []model.Edit) error {
	text, err := b.Text()
	if err != nil {
		return err
	}

	sorted := make([]model.Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	if err := validateEdits(sorted, len(text)); err != nil {
		return err
	}

	starts := lineStarts(text)
	batch := b.v.NewBatch()
	for i := len(sorted) - 1; i >= 0; i-- {
		sr, sc, er, ec, insert, ok := editRegion(starts, text, sorted[i])
		if !ok {
			return b.ReplaceAll(spliceEdits(text, sorted))
		}

		replacement := make([][]byte, 0, strings.Count(insert, "\n")+1)
		for _, line := range strings.Split(insert, "\n") {
			replacement = append(replacement, []byte(line))
		}
		batch.SetBufferText(b.buf, sr, sc, er, ec, replacement)
	}
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("%w: batched edits: %v", ErrUnavailable, err)
	}
	return nil
}

// editRegion converts one edit into SetBufferText coordinates. The final
// newline has no addressable position in Neovim's line model, so an edit
// reaching the end of the text is folded into the last line and the
// insert loses its trailing newline to match. ok is false when the edit
// would remove that newline outright; the caller must then replace the
// whole content instead.
func editRegion(starts []int, text string, e model.Edit) (sr, sc, er, ec int, insert string, ok bool) {
	insert = e.Insert
	sr, sc = offsetToPos(starts, e.From)
	er, ec = offsetToPos(starts, e.To)

	if e.To == len(text) && strings.HasSuffix(text, "\n") {
		if !strings.HasSuffix(insert, "\n") {
			return 0, 0, 0, 0, "", false
		}
		insert = strings.TrimSuffix(insert, "\n")
		lastRow := len(starts) - 2
		er, ec = lastRow, len(text)-1-starts[lastRow]
		if e.From == e.To {
			// Pure insertion past the final newline starts a new last line.
			sr, sc = er, ec
			insert = "\n" + insert
		}
	}
	return sr, sc, er, ec, insert, true
}

// spliceEdits applies sorted, disjoint edits to text in one pass.
func spliceEdits(text string, sorted []model.Edit) string {
	var sb strings.Builder
	last := 0
	for _, e := range sorted {
		sb.WriteString(text[last:e.From])
		sb.WriteString(e.Insert)
		last = e.To
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// lineStarts returns the byte offset of the start of each line.
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offsetToPos converts a byte offset into a 0-based (row, col) pair.
func offsetToPos(starts []int, off int) (row, col int) {
	row = sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
	return row, off - starts[row]
}
