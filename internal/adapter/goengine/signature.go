package goengine

import (
	"go/ast"
	"go/scanner"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

// signatureHelp resolves the innermost call whose parentheses contain off.
func (s *snapshot) signatureHelp(off int) *analysis.SignatureHelp {
	if !s.typed() {
		return nil
	}
	pos := s.pos(off)
	path, _ := astutil.PathEnclosingInterval(s.file, pos, pos)

	for _, n := range path {
		call, ok := n.(*ast.CallExpr)
		if !ok || !(call.Lparen < pos && pos <= call.Rparen) {
			continue
		}
		sig := s.signatureOf(call)
		if sig == nil {
			return nil
		}
		lparen := s.offset(call.Lparen)
		return &analysis.SignatureHelp{
			Signatures:      []analysis.Signature{*sig},
			ActiveSignature: 0,
			ActiveParameter: countArgs(s.text[lparen+1 : off]),
		}
	}
	return nil
}

func (s *snapshot) signatureOf(call *ast.CallExpr) *analysis.Signature {
	tv, ok := s.info.Types[call.Fun]
	if !ok || tv.IsType() || tv.Type == nil {
		return nil
	}
	sig, ok := tv.Type.Underlying().(*types.Signature)
	if !ok {
		return nil
	}

	var obj types.Object
	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		obj = s.info.Uses[fun]
	case *ast.SelectorExpr:
		obj = s.info.Uses[fun.Sel]
	case *ast.IndexExpr:
		if id, ok := fun.X.(*ast.Ident); ok {
			obj = s.info.Uses[id]
		}
	}

	out := &analysis.Signature{
		Label:      s.callLabel(obj, sig),
		Parameters: make([]analysis.Parameter, 0, sig.Params().Len()),
	}
	if obj != nil {
		out.Documentation = s.docFor(obj)
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		typ := types.TypeString(p.Type(), s.qualifier)
		if sig.Variadic() && i == params.Len()-1 {
			if sl, ok := p.Type().(*types.Slice); ok {
				typ = "..." + types.TypeString(sl.Elem(), s.qualifier)
			}
		}
		label := typ
		if p.Name() != "" {
			label = p.Name() + " " + typ
		}
		out.Parameters = append(out.Parameters, analysis.Parameter{Label: label})
	}
	return out
}

func (s *snapshot) callLabel(obj types.Object, sig *types.Signature) string {
	switch o := obj.(type) {
	case *types.Func:
		return types.ObjectString(o, s.qualifier)
	case nil:
		return types.TypeString(sig, s.qualifier)
	default:
		return "func " + o.Name() + strings.TrimPrefix(types.TypeString(sig, s.qualifier), "func")
	}
}

// countArgs returns the number of top-level commas in src, the text between
// an opening parenthesis and the cursor. Brackets, strings, runes and
// comments are skipped by tokenizing.
func countArgs(src string) int {
	fset := token.NewFileSet()
	f := fset.AddFile("", -1, len(src))

	var sc scanner.Scanner
	sc.Init(f, []byte(src), nil, 0)

	depth, commas := 0, 0
	for {
		_, tok, _ := sc.Scan()
		switch tok {
		case token.EOF:
			return commas
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if depth > 0 {
				depth--
			}
		case token.COMMA:
			if depth == 0 {
				commas++
			}
		}
	}
}
