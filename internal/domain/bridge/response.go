package bridge

import "github.com/Strob0t/codebridge/internal/domain/analysis"

// ResponseKind identifies an outbound envelope.
type ResponseKind string

// Response kinds sent to the editor front-end.
const (
	KindCompletionResult ResponseKind = "completionResult"
	KindSignatureResult  ResponseKind = "signatureResult"
	KindHoverResult      ResponseKind = "hoverResult"
	KindDiagnosticsPush  ResponseKind = "diagnosticsPush"
)

// Response is the envelope for all outbound messages. Data is always
// serialized; an absent result is encoded as null.
type Response struct {
	Kind          ResponseKind `json:"kind"`
	Data          any          `json:"data"`
	CorrelationID *int64       `json:"correlationId,omitempty"`
}

// CompletionResult carries completion labels. A nil slice is sent as [].
func CompletionResult(labels []string, correlationID *int64) Response {
	if labels == nil {
		labels = []string{}
	}
	return Response{Kind: KindCompletionResult, Data: labels, CorrelationID: correlationID}
}

// Labels projects completion items onto their labels, preserving order.
func Labels(items []analysis.CompletionItem) []string {
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	return labels
}

// SignatureResult carries signature help, or null when help is nil or has
// no candidates.
func SignatureResult(help *analysis.SignatureHelp, correlationID *int64) Response {
	r := Response{Kind: KindSignatureResult, CorrelationID: correlationID}
	if help == nil || len(help.Signatures) == 0 {
		return r
	}
	out := *help
	out.Signatures = make([]analysis.Signature, len(help.Signatures))
	for i, sig := range help.Signatures {
		if sig.Parameters == nil {
			sig.Parameters = []analysis.Parameter{}
		}
		out.Signatures[i] = sig
	}
	r.Data = out
	return r
}

// HoverResult carries hover info, or null when sym is nil.
func HoverResult(sym *analysis.Symbol, correlationID *int64) Response {
	r := Response{Kind: KindHoverResult, CorrelationID: correlationID}
	if sym != nil {
		r.Data = *sym
	}
	return r
}

// DiagnosticsPush carries the full diagnostic set. A nil slice is sent as [].
func DiagnosticsPush(diags []Diagnostic) Response {
	if diags == nil {
		diags = []Diagnostic{}
	}
	return Response{Kind: KindDiagnosticsPush, Data: diags}
}
