package store

import (
	"encoding/json"
	"strings"
)

const redacted = "***REDACTED***"

var redactKeys = map[string]struct{}{
	"password":    {},
	"private_key": {},
	"privatekey":  {},
	"secret":      {},
	"token":       {},
	"signature":   {},
	"auth":        {},
}

// RedactArgs returns a copy of args with secret-bearing values masked.
func RedactArgs(args map[string]string) map[string]string {
	if args == nil {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		if _, ok := redactKeys[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

// RedactJSON masks secret-bearing keys at any depth of a JSON document.
// Input that is not JSON is returned unchanged.
func RedactJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return string(b)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if _, ok := redactKeys[strings.ToLower(k)]; ok {
				out[k] = redacted
				continue
			}
			out[k] = redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}
		return out
	default:
		return v
	}
}
