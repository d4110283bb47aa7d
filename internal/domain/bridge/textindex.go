package bridge

import (
	"sort"
	"unicode/utf8"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

// TextIndex converts between the editor's offset unit (UTF-16 code units,
// as produced by the front-end's model offsets), byte offsets into the Go
// string, and 0-based line/character positions.
type TextIndex struct {
	text      string
	lineStart []int // byte offset of each line start
	length    int   // total length in UTF-16 code units
}

// NewTextIndex builds an index over text. Lines are split on '\n'.
func NewTextIndex(text string) *TextIndex {
	ix := &TextIndex{text: text, lineStart: []int{0}}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			ix.lineStart = append(ix.lineStart, i+size)
		}
		ix.length += utf16Len(r)
		i += size
	}
	return ix
}

// Len returns the text length in UTF-16 code units.
func (ix *TextIndex) Len() int { return ix.length }

// LineCount returns the number of lines (at least 1).
func (ix *TextIndex) LineCount() int { return len(ix.lineStart) }

// Clamp limits an editor offset to [0, Len()].
func (ix *TextIndex) Clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > ix.length {
		return ix.length
	}
	return offset
}

// ByteOffset converts an editor offset (UTF-16 units) to a byte offset.
// Offsets are clamped; an offset inside a surrogate pair maps to the start
// of that rune.
func (ix *TextIndex) ByteOffset(offset int) int {
	offset = ix.Clamp(offset)
	units := 0
	for i := 0; i < len(ix.text); {
		r, size := utf8.DecodeRuneInString(ix.text[i:])
		n := utf16Len(r)
		if units+n > offset {
			return i
		}
		units += n
		i += size
	}
	return len(ix.text)
}

// Offset converts a byte offset into an editor offset (UTF-16 units).
func (ix *TextIndex) Offset(byteOffset int) int {
	byteOffset = clampInt(byteOffset, 0, len(ix.text))
	return utf16Count(ix.text[:byteOffset])
}

// PositionAt converts a byte offset to a 0-based line/character position.
func (ix *TextIndex) PositionAt(byteOffset int) analysis.Position {
	byteOffset = clampInt(byteOffset, 0, len(ix.text))
	line := sort.Search(len(ix.lineStart), func(i int) bool {
		return ix.lineStart[i] > byteOffset
	}) - 1
	start := ix.lineStart[line]
	return analysis.Position{
		Line:      line,
		Character: utf16Count(ix.text[start:byteOffset]),
	}
}

// PositionAtOffset converts an editor offset to a 0-based position.
func (ix *TextIndex) PositionAtOffset(offset int) analysis.Position {
	return ix.PositionAt(ix.ByteOffset(offset))
}

// ByteOffsetAt converts a 0-based line/character position to a byte offset.
// Characters past the end of the line clamp to the line end.
func (ix *TextIndex) ByteOffsetAt(pos analysis.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(ix.lineStart) {
		return len(ix.text)
	}
	start := ix.lineStart[pos.Line]
	end := len(ix.text)
	if pos.Line+1 < len(ix.lineStart) {
		end = ix.lineStart[pos.Line+1] - 1 // exclude '\n'
	}
	units := 0
	for i := start; i < end; {
		if units >= pos.Character {
			return i
		}
		r, size := utf8.DecodeRuneInString(ix.text[i:])
		units += utf16Len(r)
		i += size
	}
	return end
}

func utf16Len(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}

func utf16Count(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
