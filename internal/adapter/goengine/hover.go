package goengine

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

// symbolAt describes the identifier at off, or the one ending at off.
func (s *snapshot) symbolAt(off int) *analysis.Symbol {
	if !s.typed() {
		return nil
	}
	id := s.identAt(s.pos(off))
	if id == nil && off > 0 {
		id = s.identAt(s.pos(off - 1))
	}
	if id == nil {
		return nil
	}

	obj := s.info.Defs[id]
	if obj == nil {
		obj = s.info.Uses[id]
	}
	if obj == nil {
		return nil
	}
	return &analysis.Symbol{
		Signature:     types.ObjectString(obj, s.qualifier),
		Documentation: s.docFor(obj),
	}
}

func (s *snapshot) identAt(pos token.Pos) *ast.Ident {
	path, _ := astutil.PathEnclosingInterval(s.file, pos, pos)
	if len(path) == 0 {
		return nil
	}
	id, ok := path[0].(*ast.Ident)
	if !ok || pos < id.Pos() || pos > id.End() {
		return nil
	}
	return id
}

// docFor returns the doc comment of obj's declaration when obj is declared
// in the analyzed file.
func (s *snapshot) docFor(obj types.Object) string {
	if obj.Pkg() != s.pkg || !obj.Pos().IsValid() {
		return ""
	}
	path, _ := astutil.PathEnclosingInterval(s.file, obj.Pos(), obj.Pos())
	for i, n := range path {
		switch d := n.(type) {
		case *ast.Field:
			return docText(d.Doc)
		case *ast.ValueSpec:
			return specDoc(d.Doc, path, i)
		case *ast.TypeSpec:
			return specDoc(d.Doc, path, i)
		case *ast.FuncDecl:
			if d.Name.Pos() == obj.Pos() {
				return docText(d.Doc)
			}
			return ""
		case *ast.BlockStmt, *ast.FuncLit:
			return ""
		}
	}
	return ""
}

// specDoc falls back to the enclosing declaration's doc for an
// unparenthesized declaration.
func specDoc(doc *ast.CommentGroup, path []ast.Node, i int) string {
	if doc != nil {
		return docText(doc)
	}
	if i+1 < len(path) {
		if gd, ok := path[i+1].(*ast.GenDecl); ok && !gd.Lparen.IsValid() {
			return docText(gd.Doc)
		}
	}
	return ""
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}
