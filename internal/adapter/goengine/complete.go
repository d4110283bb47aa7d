package goengine

import (
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

var keywords = []string{
	"break", "case", "chan", "const", "continue", "default", "defer",
	"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
	"interface", "map", "package", "range", "return", "select", "struct",
	"switch", "type", "var",
}

// completions lists candidates for the identifier prefix ending at off.
// After "x." it lists the members of x; otherwise every name visible at
// off plus keywords.
func (s *snapshot) completions(off int) []analysis.CompletionItem {
	start := identStart(s.text, off)
	prefix := s.text[start:off]

	c := newCollector(prefix)
	if !s.typed() {
		c.keywords()
		return c.items()
	}

	if start > 0 && s.text[start-1] == '.' {
		if sel := s.selectorAt(s.pos(start - 1)); sel != nil {
			s.members(c, sel.X)
			return c.items()
		}
	}

	s.scopeNames(c, s.pos(off))
	c.keywords()
	return c.items()
}

// selectorAt finds the selector expression whose dot is at dot.
func (s *snapshot) selectorAt(dot token.Pos) *ast.SelectorExpr {
	var found *ast.SelectorExpr
	ast.Inspect(s.file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if ok && sel.X.End() <= dot && dot < sel.Sel.Pos() {
			found = sel
		}
		return true
	})
	return found
}

func (s *snapshot) members(c *collector, x ast.Expr) {
	if id, ok := ast.Unparen(x).(*ast.Ident); ok {
		if pn, ok := s.info.Uses[id].(*types.PkgName); ok {
			scope := pn.Imported().Scope()
			for _, name := range scope.Names() {
				obj := scope.Lookup(name)
				if obj.Exported() {
					c.add(obj)
				}
			}
			return
		}
	}

	tv, ok := s.info.Types[x]
	if !ok || tv.Type == nil {
		return
	}
	visible := func(obj types.Object) bool {
		return obj.Exported() || obj.Pkg() == s.pkg
	}
	for _, sel := range typeutil.IntuitiveMethodSet(tv.Type, nil) {
		if visible(sel.Obj()) {
			c.add(sel.Obj())
		}
	}
	if tv.IsType() {
		return
	}
	fieldsOf(tv.Type, 0, func(f *types.Var) {
		if visible(f) {
			c.add(f)
		}
	})
}

// fieldsOf walks struct fields, descending into embedded fields.
func fieldsOf(t types.Type, depth int, add func(*types.Var)) {
	if depth > 4 {
		return
	}
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		add(f)
		if f.Embedded() {
			fieldsOf(f.Type(), depth+1, add)
		}
	}
}

// scopeNames adds every object visible at pos, innermost scope first.
func (s *snapshot) scopeNames(c *collector, pos token.Pos) {
	scope := s.pkg.Scope().Innermost(pos)
	if scope == nil {
		scope = s.pkg.Scope()
	}
	for ; scope != nil; scope = scope.Parent() {
		local := scope != types.Universe && scope != s.pkg.Scope() && scope.Parent() != s.pkg.Scope()
		for _, name := range scope.Names() {
			obj := scope.Lookup(name)
			if local && obj.Pos() > pos {
				continue
			}
			c.add(obj)
		}
	}
}

type collector struct {
	prefix string
	seen   map[string]bool
	out    []analysis.CompletionItem
}

func newCollector(prefix string) *collector {
	return &collector{prefix: strings.ToLower(prefix), seen: make(map[string]bool)}
}

func (c *collector) add(obj types.Object) {
	c.addItem(obj.Name(), kindOf(obj))
}

func (c *collector) keywords() {
	for _, kw := range keywords {
		c.addItem(kw, analysis.KindKeyword)
	}
}

func (c *collector) addItem(label string, kind analysis.CompletionKind) {
	if label == "" || label == "_" || c.seen[label] {
		return
	}
	if !strings.HasPrefix(strings.ToLower(label), c.prefix) {
		return
	}
	c.seen[label] = true
	c.out = append(c.out, analysis.CompletionItem{Label: label, InsertText: label, Kind: kind})
}

func (c *collector) items() []analysis.CompletionItem {
	sort.SliceStable(c.out, func(i, j int) bool { return c.out[i].Label < c.out[j].Label })
	return c.out
}

func kindOf(obj types.Object) analysis.CompletionKind {
	switch o := obj.(type) {
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			return analysis.KindMethod
		}
		return analysis.KindFunction
	case *types.Builtin:
		return analysis.KindFunction
	case *types.Var:
		if o.IsField() {
			return analysis.KindField
		}
		return analysis.KindVariable
	case *types.Const, *types.Nil:
		return analysis.KindConstant
	case *types.TypeName:
		return analysis.KindType
	case *types.PkgName:
		return analysis.KindPackage
	default:
		return analysis.KindText
	}
}
