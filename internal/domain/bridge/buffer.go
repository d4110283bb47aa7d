package bridge

// Buffer is a session's single source of truth: the latest full text and a
// version incremented on every replacement. A Buffer is owned by one
// session worker and is not safe for concurrent use.
type Buffer struct {
	text    string
	version uint64
	index   *TextIndex
}

// Replace swaps the text verbatim and returns the new version. Identical
// text still produces a new version.
func (b *Buffer) Replace(text string) uint64 {
	b.text = text
	b.version++
	b.index = nil
	return b.version
}

// Text returns the current text.
func (b *Buffer) Text() string { return b.text }

// Version returns the number of replacements applied so far.
func (b *Buffer) Version() uint64 { return b.version }

// Index returns the offset index for the current text, built on first use.
func (b *Buffer) Index() *TextIndex {
	if b.index == nil {
		b.index = NewTextIndex(b.text)
	}
	return b.index
}
