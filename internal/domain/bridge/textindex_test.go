package bridge

import (
	"testing"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

func TestTextIndexASCII(t *testing.T) {
	ix := NewTextIndex("ab\ncd\n")

	if ix.Len() != 6 {
		t.Fatalf("Len = %d, want 6", ix.Len())
	}
	if ix.LineCount() != 3 {
		t.Fatalf("LineCount = %d, want 3", ix.LineCount())
	}

	tests := []struct {
		offset int
		want   analysis.Position
	}{
		{0, analysis.Position{Line: 0, Character: 0}},
		{2, analysis.Position{Line: 0, Character: 2}},
		{3, analysis.Position{Line: 1, Character: 0}},
		{5, analysis.Position{Line: 1, Character: 2}},
		{6, analysis.Position{Line: 2, Character: 0}},
		{99, analysis.Position{Line: 2, Character: 0}},
		{-4, analysis.Position{Line: 0, Character: 0}},
	}
	for _, tt := range tests {
		got := ix.PositionAtOffset(tt.offset)
		if got != tt.want {
			t.Errorf("PositionAtOffset(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestTextIndexUTF16(t *testing.T) {
	// "é" is 2 bytes / 1 unit, "😀" is 4 bytes / 2 units.
	text := "é😀x"
	ix := NewTextIndex(text)

	if ix.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ix.Len())
	}

	tests := []struct {
		offset   int
		wantByte int
	}{
		{0, 0},
		{1, 2},
		{2, 2}, // inside the surrogate pair
		{3, 6},
		{4, 7},
	}
	for _, tt := range tests {
		if got := ix.ByteOffset(tt.offset); got != tt.wantByte {
			t.Errorf("ByteOffset(%d) = %d, want %d", tt.offset, got, tt.wantByte)
		}
	}

	if got := ix.Offset(6); got != 3 {
		t.Errorf("Offset(6) = %d, want 3", got)
	}
	if got := ix.PositionAt(6); got.Character != 3 {
		t.Errorf("PositionAt(6).Character = %d, want 3", got.Character)
	}
}

func TestTextIndexByteOffsetAt(t *testing.T) {
	ix := NewTextIndex("package main\n\nfunc f() {}\n")

	tests := []struct {
		pos  analysis.Position
		want int
	}{
		{analysis.Position{Line: 0, Character: 0}, 0},
		{analysis.Position{Line: 0, Character: 7}, 7},
		{analysis.Position{Line: 0, Character: 50}, 12},
		{analysis.Position{Line: 2, Character: 5}, 19},
		{analysis.Position{Line: 9, Character: 0}, 26},
		{analysis.Position{Line: -1, Character: 0}, 0},
	}
	for _, tt := range tests {
		if got := ix.ByteOffsetAt(tt.pos); got != tt.want {
			t.Errorf("ByteOffsetAt(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestTextIndexEmpty(t *testing.T) {
	ix := NewTextIndex("")
	if ix.Len() != 0 || ix.LineCount() != 1 {
		t.Fatalf("empty index: Len=%d LineCount=%d", ix.Len(), ix.LineCount())
	}
	if got := ix.ByteOffset(10); got != 0 {
		t.Errorf("ByteOffset(10) = %d, want 0", got)
	}
}

func TestBufferReplace(t *testing.T) {
	var b Buffer
	if b.Version() != 0 || b.Text() != "" {
		t.Fatal("zero buffer not empty")
	}

	v1 := b.Replace("a")
	v2 := b.Replace("a")
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = %d, %d; want 1, 2", v1, v2)
	}

	before := b.Index()
	b.Replace("abc\n")
	after := b.Index()
	if before == after {
		t.Fatal("index not rebuilt after Replace")
	}
	if after.Len() != 4 {
		t.Errorf("Len = %d, want 4", after.Len())
	}
}
