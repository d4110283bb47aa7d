package lsp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

// Wire shapes of the LSP results this engine consumes.

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspDiagnostic struct {
	Range    lspRange        `json:"range"`
	Severity int             `json:"severity"`
	Code     json.RawMessage `json:"code,omitempty"`
	Source   string          `json:"source"`
	Message  string          `json:"message"`
}

type publishDiagnosticsParams struct {
	URI         string          `json:"uri"`
	Version     *int            `json:"version,omitempty"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

type lspCompletionItem struct {
	Label      string `json:"label"`
	Kind       int    `json:"kind"`
	InsertText string `json:"insertText"`
	SortText   string `json:"sortText"`
}

type lspParameter struct {
	Label         json.RawMessage `json:"label"`
	Documentation json.RawMessage `json:"documentation"`
}

type lspSignature struct {
	Label           string          `json:"label"`
	Documentation   json.RawMessage `json:"documentation"`
	Parameters      []lspParameter  `json:"parameters"`
	ActiveParameter *int            `json:"activeParameter"`
}

type lspSignatureHelp struct {
	Signatures      []lspSignature `json:"signatures"`
	ActiveSignature *int           `json:"activeSignature"`
	ActiveParameter *int           `json:"activeParameter"`
}

func toDiagnostics(in []lspDiagnostic) []analysis.Diagnostic {
	out := make([]analysis.Diagnostic, 0, len(in))
	for _, d := range in {
		sev := analysis.Severity(d.Severity)
		if sev == 0 {
			sev = analysis.SeverityError
		}
		out = append(out, analysis.Diagnostic{
			Range: analysis.Range{
				Start: analysis.Position(d.Range.Start),
				End:   analysis.Position(d.Range.End),
			},
			Severity: sev,
			Source:   d.Source,
			Message:  d.Message,
			Code:     rawScalar(d.Code),
		})
	}
	return out
}

// parseCompletions accepts CompletionItem[] or CompletionList and orders
// items by sortText, falling back to the label.
func parseCompletions(raw json.RawMessage) ([]analysis.CompletionItem, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []lspCompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		var list struct {
			Items []lspCompletionItem `json:"items"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("unmarshal completion: %w", err)
		}
		items = list.Items
	}

	sortKey := func(it lspCompletionItem) string {
		if it.SortText != "" {
			return it.SortText
		}
		return it.Label
	}
	sort.SliceStable(items, func(i, j int) bool { return sortKey(items[i]) < sortKey(items[j]) })

	out := make([]analysis.CompletionItem, 0, len(items))
	for _, it := range items {
		insert := it.InsertText
		if insert == "" {
			insert = it.Label
		}
		out = append(out, analysis.CompletionItem{
			Label:      it.Label,
			InsertText: insert,
			Kind:       completionKind(it.Kind),
		})
	}
	return out, nil
}

// completionKind maps LSP CompletionItemKind numbers.
func completionKind(k int) analysis.CompletionKind {
	switch k {
	case 2:
		return analysis.KindMethod
	case 3, 4:
		return analysis.KindFunction
	case 5, 10:
		return analysis.KindField
	case 6, 12:
		return analysis.KindVariable
	case 7, 8, 13, 22, 25:
		return analysis.KindType
	case 9:
		return analysis.KindPackage
	case 14:
		return analysis.KindKeyword
	case 20, 21:
		return analysis.KindConstant
	default:
		return analysis.KindText
	}
}

func parseSignatureHelp(raw json.RawMessage) (*analysis.SignatureHelp, error) {
	if isNull(raw) {
		return nil, nil
	}
	var in lspSignatureHelp
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal signatureHelp: %w", err)
	}
	if len(in.Signatures) == 0 {
		return nil, nil
	}

	out := &analysis.SignatureHelp{Signatures: make([]analysis.Signature, 0, len(in.Signatures))}
	if in.ActiveSignature != nil && *in.ActiveSignature >= 0 && *in.ActiveSignature < len(in.Signatures) {
		out.ActiveSignature = *in.ActiveSignature
	}
	for _, sig := range in.Signatures {
		s := analysis.Signature{
			Label:         sig.Label,
			Documentation: markupText(sig.Documentation),
			Parameters:    make([]analysis.Parameter, 0, len(sig.Parameters)),
		}
		for _, p := range sig.Parameters {
			s.Parameters = append(s.Parameters, analysis.Parameter{
				Label:         parameterLabel(sig.Label, p.Label),
				Documentation: markupText(p.Documentation),
			})
		}
		out.Signatures = append(out.Signatures, s)
	}

	switch active := in.Signatures[out.ActiveSignature].ActiveParameter; {
	case in.ActiveParameter != nil:
		out.ActiveParameter = *in.ActiveParameter
	case active != nil:
		out.ActiveParameter = *active
	}
	return out, nil
}

// parameterLabel resolves a parameter label given either as a string or as
// [start, end] UTF-16 offsets into the signature label.
func parameterLabel(sigLabel string, raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var span [2]int
	if err := json.Unmarshal(raw, &span); err != nil {
		return ""
	}
	units := utf16.Encode([]rune(sigLabel))
	start, end := span[0], span[1]
	if start < 0 || end > len(units) || start > end {
		return ""
	}
	return string(utf16.Decode(units[start:end]))
}

// parseHover splits hover contents into a signature (the first code block,
// or the first line) and the remaining documentation.
func parseHover(raw json.RawMessage) (*analysis.Symbol, error) {
	if isNull(raw) {
		return nil, nil
	}
	var in struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal hover: %w", err)
	}
	text := strings.TrimSpace(markupText(in.Contents))
	if text == "" {
		return nil, nil
	}

	if strings.HasPrefix(text, "```") {
		body := text[3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			return &analysis.Symbol{
				Signature:     strings.TrimSpace(body[:end]),
				Documentation: strings.TrimSpace(body[end+3:]),
			}, nil
		}
	}

	sig, doc, _ := strings.Cut(text, "\n")
	return &analysis.Symbol{
		Signature:     strings.TrimSpace(sig),
		Documentation: strings.TrimSpace(doc),
	}, nil
}

// markupText normalizes string | MarkupContent | MarkedString | MarkedString[]
// to plain markdown.
func markupText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			if p := markupText(item); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	var mc struct {
		Kind     string `json:"kind"`
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &mc); err != nil {
		return ""
	}
	if mc.Language != "" {
		return "```" + mc.Language + "\n" + mc.Value + "\n```"
	}
	return mc.Value
}

func rawScalar(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
