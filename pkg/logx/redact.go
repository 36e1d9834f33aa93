package logx

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" -> "jo***@example.com", "ab@example.com" -> "***@example.com".
func RedactEmail(email string) string {
	name, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}

// redactFields returns a copy of fields with addresses masked. Keys naming
// an email or recipient address are masked whole; other string values only
// have embedded addresses replaced.
func redactFields(fields Fields) Fields {
	if len(fields) == 0 {
		return fields
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		key := strings.ToLower(k)
		if strings.Contains(key, "email") || key == "to" || key == "recipient" {
			out[k] = emailPattern.ReplaceAllStringFunc(s, RedactEmail)
			if out[k] == s && strings.Contains(s, "@") {
				out[k] = RedactEmail(s)
			}
			continue
		}
		out[k] = emailPattern.ReplaceAllStringFunc(s, RedactEmail)
	}
	return out
}
