// Package bridge defines the editor wire protocol: the request tagged union,
// response envelopes, the JSON codec, the session buffer and the mapping of
// engine diagnostics onto the editor's marker convention.
package bridge

// Kind identifies a request variant on the wire.
type Kind string

// Request kinds sent by the editor front-end.
const (
	KindUpdate        Kind = "update"
	KindCompletion    Kind = "completion"
	KindSignatureHelp Kind = "signatureHelp"
	KindHover         Kind = "hover"
)

// Request is the sealed union of inbound messages. Every decoded frame is
// exactly one of Update, Completion, SignatureHelp, Hover or Unknown.
type Request interface {
	Kind() Kind
	// Correlation returns the caller-supplied correlation id, if any.
	Correlation() *int64
	isRequest()
}

// Update replaces the buffer and triggers a diagnostics push.
type Update struct {
	Code          string
	CorrelationID *int64
}

// Completion asks for completions at Position after replacing the buffer.
type Completion struct {
	Code          string
	Position      int
	CorrelationID *int64
}

// SignatureHelp asks for the signatures of the call enclosing Position.
type SignatureHelp struct {
	Code          string
	Position      int
	CorrelationID *int64
}

// Hover asks for the symbol at Position.
type Hover struct {
	Code          string
	Position      int
	CorrelationID *int64
}

// Unknown is a frame that could not be understood. It is dropped without
// a response.
type Unknown struct {
	RawKind string
	Reason  string
}

func (Update) Kind() Kind        { return KindUpdate }
func (Completion) Kind() Kind    { return KindCompletion }
func (SignatureHelp) Kind() Kind { return KindSignatureHelp }
func (Hover) Kind() Kind         { return KindHover }
func (u Unknown) Kind() Kind     { return Kind(u.RawKind) }

func (r Update) Correlation() *int64        { return r.CorrelationID }
func (r Completion) Correlation() *int64    { return r.CorrelationID }
func (r SignatureHelp) Correlation() *int64 { return r.CorrelationID }
func (r Hover) Correlation() *int64         { return r.CorrelationID }
func (Unknown) Correlation() *int64         { return nil }

func (Update) isRequest()        {}
func (Completion) isRequest()    {}
func (SignatureHelp) isRequest() {}
func (Hover) isRequest()         {}
func (Unknown) isRequest()       {}
