package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Validate checks an envelope and returns its payload.
//
// It fails with *APICallError when resp is nil or has no status, when the
// status is not exactly "OK", or when the payload is false, null or absent.
// A non-OK error carries the error type, the error code and the payload
// text when they are present.
func Validate(resp *Response) (json.RawMessage, error) {
	if resp == nil || resp.Status == "" {
		return nil, &APICallError{Msg: "error during the api call"}
	}

	if resp.Status != StatusOK {
		var sb strings.Builder
		sb.WriteString("wrong response: ")
		if resp.ErrorType != "" {
			sb.WriteString("Type(" + string(resp.ErrorType) + ") ")
		}
		if resp.ErrorCode != "" {
			sb.WriteString("Code(" + string(resp.ErrorCode) + ") ")
		}
		sb.WriteString(renderData(resp.Data))
		return nil, &APICallError{Msg: strings.TrimRight(sb.String(), " ")}
	}

	if isEmptyPayload(resp.Data) {
		return nil, &APICallError{Msg: "wrong content"}
	}

	return resp.Data, nil
}

func isEmptyPayload(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("false")) || bytes.Equal(raw, []byte("null"))
}

// DecodeText decodes a validated payload that must be a JSON string.
func DecodeText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &APICallError{Msg: "wrong content: expected text payload"}
	}
	return s, nil
}

// DecodeList decodes a validated payload that must be a JSON array of strings.
func DecodeList(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &APICallError{Msg: "wrong content: expected a list of strings"}
	}
	return list, nil
}
