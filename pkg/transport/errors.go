package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeError extracts the human message and field details from an error
// body. FastAPI reports {"detail": "..."} for handled errors and
// {"detail": [{"loc": [...], "msg": "..."}]} for validation failures.
func decodeError(body []byte) (string, map[string][]string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	var parsed errorBody
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return truncate(string(trimmed)), nil
	}

	if len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return text, nil
		}
		var details []validationDetail
		if err := json.Unmarshal(parsed.Detail, &details); err == nil {
			return summarise(details)
		}
	}
	if parsed.Message != "" {
		return parsed.Message, nil
	}
	return parsed.Error, nil
}

func summarise(details []validationDetail) (string, map[string][]string) {
	fields := make(map[string][]string)
	var messages []string
	for _, detail := range details {
		parts := make([]string, 0, len(detail.Loc))
		for _, segment := range detail.Loc {
			parts = append(parts, fmt.Sprint(segment))
		}
		path := strings.Join(parts, ".")
		fields[path] = append(fields[path], detail.Msg)
		messages = append(messages, strings.TrimSpace(path+": "+detail.Msg))
	}
	if len(fields) == 0 {
		fields = nil
	}
	return strings.Join(messages, "; "), fields
}

func truncate(text string) string {
	const limit = 200
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
