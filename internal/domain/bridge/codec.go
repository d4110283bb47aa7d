package bridge

import (
	"encoding/json"
	"fmt"
)

// wireRequest is the JSON shape of every inbound frame. Pointer fields
// distinguish "absent" from zero values.
type wireRequest struct {
	Kind          string  `json:"kind"`
	Code          *string `json:"code"`
	Position      *int    `json:"position"`
	CorrelationID *int64  `json:"correlationId"`
}

// Decode parses one inbound frame. It never fails: malformed frames, a
// missing or unrecognized kind, and missing required fields all decode to
// Unknown with a reason.
func Decode(frame []byte) Request {
	var w wireRequest
	if err := json.Unmarshal(frame, &w); err != nil {
		return Unknown{Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	if w.Kind == "" {
		return Unknown{Reason: "missing kind"}
	}

	kind := Kind(w.Kind)
	switch kind {
	case KindUpdate, KindCompletion, KindSignatureHelp, KindHover:
	default:
		return Unknown{RawKind: w.Kind, Reason: "unknown kind"}
	}

	if w.Code == nil {
		return Unknown{RawKind: w.Kind, Reason: "missing code"}
	}
	if kind == KindUpdate {
		return Update{Code: *w.Code, CorrelationID: w.CorrelationID}
	}

	if w.Position == nil {
		return Unknown{RawKind: w.Kind, Reason: "missing position"}
	}
	pos := *w.Position
	switch kind {
	case KindCompletion:
		return Completion{Code: *w.Code, Position: pos, CorrelationID: w.CorrelationID}
	case KindSignatureHelp:
		return SignatureHelp{Code: *w.Code, Position: pos, CorrelationID: w.CorrelationID}
	default:
		return Hover{Code: *w.Code, Position: pos, CorrelationID: w.CorrelationID}
	}
}

// Encode serializes a response envelope into one outbound text frame.
func Encode(r Response) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Kind, err)
	}
	return data, nil
}
