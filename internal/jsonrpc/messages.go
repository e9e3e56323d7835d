package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// ErrParse is returned when a payload is not valid JSON.
var ErrParse = errors.New("jsonrpc: parse error")

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carried no id member.
func (r *Request) IsNotification() bool { return r.ID == nil }

// Type returns "notification" or "request" for logging.
func (r *Request) Type() string {
	if r.IsNotification() {
		return "notification"
	}
	return "request"
}

// Response represents a JSON-RPC response. The id member is always present,
// encoded as null when the request id could not be determined.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// Payload is one inbound transport frame: either a single message or a batch.
type Payload struct {
	Batch    bool
	Messages []json.RawMessage
}

// ParsePayload splits raw bytes into the messages they carry. It returns an
// error wrapping ErrParse when data is not a JSON document. An empty batch is
// reported as a batch with no messages; callers answer it with a single
// invalid request error.
func ParsePayload(data []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrParse)
	}

	if trimmed[0] != '[' {
		return &Payload{Messages: []json.RawMessage{json.RawMessage(trimmed)}}, nil
	}

	var msgs []json.RawMessage
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &Payload{Batch: true, Messages: msgs}, nil
}

// ParseRequest validates a single request object. On failure it returns the
// request id when one could be recovered so the error response can echo it.
func ParseRequest(msg json.RawMessage) (*Request, *RequestID, *Error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil || fields == nil {
		return nil, nil, NewError(ErrorCodeInvalidRequest, "Invalid Request: message must be an object")
	}

	var req Request
	if rawID, ok := fields["id"]; ok {
		id := new(RequestID)
		if err := id.UnmarshalJSON(rawID); err != nil {
			return nil, nil, NewError(ErrorCodeInvalidRequest, "Invalid Request: id must be a string, number or null")
		}
		req.ID = id
	}

	if err := json.Unmarshal(fields["jsonrpc"], &req.JSONRPCVersion); err != nil || req.JSONRPCVersion != ProtocolVersion {
		return nil, req.ID, NewError(ErrorCodeInvalidRequest, `Invalid Request: jsonrpc must be "2.0"`)
	}
	if err := json.Unmarshal(fields["method"], &req.Method); err != nil || req.Method == "" {
		return nil, req.ID, NewError(ErrorCodeInvalidRequest, "Invalid Request: method must be a non-empty string")
	}
	if params, ok := fields["params"]; ok && !bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		switch bytes.TrimSpace(params)[0] {
		case '{', '[':
			req.Params = params
		default:
			return nil, req.ID, NewError(ErrorCodeInvalidRequest, "Invalid Request: params must be an object or array")
		}
	}

	return &req, req.ID, nil
}

// EncodeResponses renders responses for a payload. A batch always encodes as
// an array; a single message encodes as one object. It returns nil when there
// is nothing to send.
func EncodeResponses(batch bool, responses []*Response) ([]byte, error) {
	if len(responses) == 0 {
		return nil, nil
	}
	if batch {
		return json.Marshal(responses)
	}
	return json.Marshal(responses[0])
}
