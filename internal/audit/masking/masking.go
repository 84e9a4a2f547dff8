// Package masking redacts payout details before they reach the audit log.
package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose string values are masked.
var sensitiveKeys = map[string]bool{
	"account_number": true,
	"account_holder": true,
	"password":       true,
	"token":          true,
}

// MaskAccount hides all but the last four characters of an account number.
func MaskAccount(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskJSON returns a copy of input with sensitive string values masked.
// Nested maps and slices are walked.
func MaskJSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if sensitiveKeys[strings.ToLower(key)] {
			return MaskAccount(cast)
		}
		return cast
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		return value
	}
}
