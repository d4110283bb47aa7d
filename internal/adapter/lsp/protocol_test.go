package lsp

import (
	"encoding/json"
	"testing"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

func TestParseCompletionsOrdersBySortText(t *testing.T) {
	raw := json.RawMessage(`{"isIncomplete":false,"items":[
		{"label":"Println","kind":3,"sortText":"b"},
		{"label":"Printf","kind":3,"sortText":"a","insertText":"Printf($1)"},
		{"label":"x","kind":6}
	]}`)
	items, err := parseCompletions(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].Label != "Printf" || items[1].Label != "Println" || items[2].Label != "x" {
		t.Fatalf("items = %+v", items)
	}
	if items[1].InsertText != "Println" {
		t.Errorf("insertText fallback = %q", items[1].InsertText)
	}
	if items[2].Kind != analysis.KindVariable {
		t.Errorf("kind = %v", items[2].Kind)
	}
}

func TestParseCompletionsArrayAndNull(t *testing.T) {
	items, err := parseCompletions(json.RawMessage(`[{"label":"a","kind":14}]`))
	if err != nil || len(items) != 1 || items[0].Kind != analysis.KindKeyword {
		t.Fatalf("items = %+v, err = %v", items, err)
	}
	items, err = parseCompletions(json.RawMessage(`null`))
	if err != nil || items != nil {
		t.Fatalf("null: items = %+v, err = %v", items, err)
	}
}

func TestParseSignatureHelp(t *testing.T) {
	raw := json.RawMessage(`{
		"signatures":[{"label":"Add(int a, int b)","documentation":{"kind":"markdown","value":"Adds."},
			"parameters":[{"label":[4,9]},{"label":"int b","documentation":"second"}]}],
		"activeSignature":0,"activeParameter":1}`)
	help, err := parseSignatureHelp(raw)
	if err != nil {
		t.Fatal(err)
	}
	if help.ActiveParameter != 1 || help.ActiveSignature != 0 {
		t.Fatalf("active = %d/%d", help.ActiveSignature, help.ActiveParameter)
	}
	sig := help.Signatures[0]
	if sig.Documentation != "Adds." {
		t.Errorf("documentation = %q", sig.Documentation)
	}
	if sig.Parameters[0].Label != "int a" || sig.Parameters[1].Documentation != "second" {
		t.Errorf("parameters = %+v", sig.Parameters)
	}
}

func TestParseSignatureHelpPerSignatureActiveParameter(t *testing.T) {
	raw := json.RawMessage(`{"signatures":[{"label":"f(a, b)","parameters":[],"activeParameter":2}]}`)
	help, err := parseSignatureHelp(raw)
	if err != nil {
		t.Fatal(err)
	}
	if help.ActiveParameter != 2 {
		t.Fatalf("activeParameter = %d, want 2", help.ActiveParameter)
	}
}

func TestParseSignatureHelpEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `{"signatures":[]}`} {
		help, err := parseSignatureHelp(json.RawMessage(raw))
		if err != nil || help != nil {
			t.Errorf("%s: help = %+v, err = %v", raw, help, err)
		}
	}
}

func TestParseHover(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantSig string
		wantDoc string
	}{
		{
			name:    "markdown code block",
			raw:     "{\"contents\":{\"kind\":\"markdown\",\"value\":\"```go\\nfunc Add(a, b int) int\\n```\\n\\nAdd adds.\"}}",
			wantSig: "func Add(a, b int) int",
			wantDoc: "Add adds.",
		},
		{
			name:    "plain string",
			raw:     `{"contents":"int x\nthe counter"}`,
			wantSig: "int x",
			wantDoc: "the counter",
		},
		{
			name:    "marked string array",
			raw:     `{"contents":[{"language":"csharp","value":"void M()"},"Does M."]}`,
			wantSig: "void M()",
			wantDoc: "Does M.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := parseHover(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			if sym == nil || sym.Signature != tt.wantSig || sym.Documentation != tt.wantDoc {
				t.Fatalf("got %+v", sym)
			}
		})
	}
}

func TestParseHoverEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `{"contents":""}`, `{"contents":[]}`} {
		sym, err := parseHover(json.RawMessage(raw))
		if err != nil || sym != nil {
			t.Errorf("%s: sym = %+v, err = %v", raw, sym, err)
		}
	}
}

func TestToDiagnosticsDefaultsSeverity(t *testing.T) {
	got := toDiagnostics([]lspDiagnostic{
		{Message: "a", Code: json.RawMessage(`"CS0103"`)},
		{Message: "b", Severity: 4, Code: json.RawMessage(`42`)},
	})
	if got[0].Severity != analysis.SeverityError || got[0].Code != "CS0103" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Severity != analysis.SeverityHint || got[1].Code != "42" {
		t.Errorf("second = %+v", got[1])
	}
}
