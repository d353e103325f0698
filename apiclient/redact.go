package apiclient

import (
	"encoding/json"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"password", "otp", "token", "access", "refresh"}

// redactJSON masks credential-bearing fields in a JSON document for logging.
// Bodies that are not JSON objects are replaced entirely.
func redactJSON(data []byte) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		out, _ := json.Marshal(redacted)
		return out
	}
	redactMap(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return []byte("null")
	}
	return out
}

func redactMap(m map[string]any) {
	for k, v := range m {
		if isSensitive(k) {
			m[k] = redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			redactMap(nested)
		}
	}
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
