package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxTextMessage caps how much of a non-JSON error body becomes a message.
const maxTextMessage = 512

// errorDetail is the structured error object the backend may attach.
type errorDetail struct {
	Field         string          `json:"field"`
	Message       string          `json:"message"`
	RejectedValue json.RawMessage `json:"rejectedValue,omitempty"`
}

// normalize maps a received response onto either the call's result or an
// *Error. It is the only place that knows the backend's envelope shape:
//
//   - 2xx object with a boolean "success": true yields "data" (null when
//     absent), false yields a rejected error carrying the envelope message;
//   - any other 2xx body is returned unchanged (empty becomes null, plain
//     text becomes a JSON string);
//   - 4xx/5xx become client/server errors with the extracted message.
func normalize(status int, body []byte) (json.RawMessage, *Error) {
	trimmed := bytes.TrimSpace(body)

	if status < 200 || status > 299 {
		msg, field := extractMessage(trimmed)
		if msg == "" {
			msg = DefaultMessage
		}
		kind := classify(status)
		if kind == "" {
			return nil, &Error{Kind: KindInvalidResponse, Status: status, Message: msg}
		}
		return nil, &Error{Kind: kind, Status: status, Message: msg, Field: field}
	}

	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		raw, _ := json.Marshal(string(trimmed))
		return raw, nil
	}

	if ok, isEnvelope := envelopeSuccess(trimmed); isEnvelope {
		if !ok {
			msg, field := extractMessage(trimmed)
			if msg == "" {
				msg = DefaultMessage
			}
			return nil, &Error{Kind: KindRejected, Status: status, Message: msg, Field: field}
		}
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		_ = json.Unmarshal(trimmed, &env)
		if len(env.Data) == 0 {
			return json.RawMessage("null"), nil
		}
		return env.Data, nil
	}

	return json.RawMessage(trimmed), nil
}

// envelopeSuccess reports the envelope's success flag and whether body is an
// envelope at all (a JSON object whose "success" key holds a boolean).
func envelopeSuccess(body []byte) (success, isEnvelope bool) {
	if len(body) == 0 || body[0] != '{' {
		return false, false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return false, false
	}
	raw, ok := top["success"]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// extractMessage picks the human-readable message of an error body with the
// priority: "message" key, then "error" (string, or object with "message"),
// then the body itself when it is a bare string or plain text.
func extractMessage(body []byte) (msg, field string) {
	if len(body) == 0 {
		return "", ""
	}

	var obj map[string]json.RawMessage
	if body[0] == '{' && json.Unmarshal(body, &obj) == nil {
		var detail errorDetail
		rawErr, hasErr := obj["error"]
		if hasErr {
			_ = json.Unmarshal(rawErr, &detail)
		}
		if m := jsonString(obj["message"]); m != "" {
			return m, detail.Field
		}
		if hasErr {
			if s := jsonString(rawErr); s != "" {
				return s, ""
			}
			if detail.Message != "" {
				return detail.Message, detail.Field
			}
		}
		return "", ""
	}

	if body[0] == '"' {
		return jsonString(body), ""
	}
	if json.Valid(body) || body[0] == '<' {
		// Arrays, numbers and HTML error pages carry no usable message.
		return "", ""
	}
	return truncateText(string(body), maxTextMessage), ""
}

func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func truncateText(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
