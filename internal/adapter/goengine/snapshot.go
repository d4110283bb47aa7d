package goengine

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
)

// snapshot is the analysis of one text version.
type snapshot struct {
	version uint64
	text    string
	index   *bridge.TextIndex

	fset  *token.FileSet
	tfile *token.File
	file  *ast.File
	pkg   *types.Package
	info  *types.Info

	diags []analysis.Diagnostic
}

func analyze(version uint64, name, text string, imp types.Importer) *snapshot {
	s := &snapshot{
		version: version,
		text:    text,
		index:   bridge.NewTextIndex(text),
		fset:    token.NewFileSet(),
	}

	file, err := parser.ParseFile(s.fset, name, text, parser.AllErrors|parser.ParseComments)
	var list scanner.ErrorList
	switch {
	case errors.As(err, &list):
		for _, pe := range list {
			s.addDiag(pe.Pos.Offset, pe.Msg, analysis.SeverityError, "syntax")
		}
	case err != nil:
		s.addDiag(0, err.Error(), analysis.SeverityError, "syntax")
	}

	s.fset.Iterate(func(f *token.File) bool {
		s.tfile = f
		return false
	})
	if file == nil || s.tfile == nil || !file.Package.IsValid() {
		s.sortDiags()
		return s
	}
	s.file = file

	s.info = &types.Info{
		Types:  make(map[ast.Expr]types.TypeAndValue),
		Defs:   make(map[*ast.Ident]types.Object),
		Uses:   make(map[*ast.Ident]types.Object),
		Scopes: make(map[ast.Node]*types.Scope),
	}
	conf := types.Config{
		Importer: imp,
		Error: func(err error) {
			var te types.Error
			if !errors.As(err, &te) {
				s.addDiag(0, err.Error(), analysis.SeverityError, "types")
				return
			}
			sev := analysis.SeverityError
			if te.Soft {
				sev = analysis.SeverityWarning
			}
			s.addDiag(s.offset(te.Pos), te.Msg, sev, "types")
		},
	}
	// Errors are collected through conf.Error; the package is usable even
	// when the check fails.
	s.pkg, _ = conf.Check(file.Name.Name, s.fset, []*ast.File{file}, s.info)

	s.sortDiags()
	return s
}

func (s *snapshot) addDiag(off int, msg string, sev analysis.Severity, source string) {
	if off < 0 || off > len(s.text) {
		off = 0
	}
	s.diags = append(s.diags, analysis.Diagnostic{
		Range: analysis.Range{
			Start: s.index.PositionAt(off),
			End:   s.index.PositionAt(identEnd(s.text, off)),
		},
		Severity: sev,
		Source:   source,
		Message:  msg,
	})
}

func (s *snapshot) sortDiags() {
	sort.SliceStable(s.diags, func(i, j int) bool {
		a, b := s.diags[i].Range.Start, s.diags[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
}

// offset converts a position in the analyzed file to a byte offset,
// clamping positions outside the file.
func (s *snapshot) offset(p token.Pos) int {
	if s.tfile == nil || !p.IsValid() {
		return 0
	}
	base := s.tfile.Base()
	switch {
	case int(p) < base:
		return 0
	case int(p) > base+s.tfile.Size():
		return s.tfile.Size()
	}
	return int(p) - base
}

// pos converts a byte offset into a position in the analyzed file.
func (s *snapshot) pos(off int) token.Pos {
	if off < 0 {
		off = 0
	}
	if off > s.tfile.Size() {
		off = s.tfile.Size()
	}
	return s.tfile.Pos(off)
}

func (s *snapshot) typed() bool {
	return s.file != nil && s.pkg != nil && s.info != nil
}

// qualifier omits the analyzed package and uses bare names for others.
func (s *snapshot) qualifier(p *types.Package) string {
	if p == s.pkg {
		return ""
	}
	return p.Name()
}

// identEnd returns the end of the identifier starting at off, or off when
// no identifier starts there.
func identEnd(text string, off int) int {
	for off < len(text) {
		r, size := utf8.DecodeRuneInString(text[off:])
		if !isIdentRune(r) {
			break
		}
		off += size
	}
	return off
}

// identStart returns the start of the identifier ending at off.
func identStart(text string, off int) int {
	for off > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:off])
		if !isIdentRune(r) {
			break
		}
		off -= size
	}
	return off
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
