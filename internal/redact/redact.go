// Package redact scrubs credentials from strings before they reach logs
// or API responses. Audit targets are often staging URLs carrying access
// tokens in their query strings, and history sink errors can embed the
// database connection string, so anything destined for a log line passes
// through here first.
package redact

import (
	"net/url"
	"regexp"
)

// Placeholders substituted for redacted content.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"

	// maskedParamValue survives query encoding unescaped.
	maskedParamValue = "REDACTED"
	maskedPassword   = "****"
)

var (
	// Connection strings with inline credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database)://[^@\s]+@`)

	// password=..., pwd: ... style fragments.
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`)

	// api_key=..., token: ... style fragments.
	apiKeyRegex = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)
)

// sensitiveParamRegex matches query parameter names whose values must not
// be logged.
var sensitiveParamRegex = regexp.MustCompile(`(?i)(token|key|secret|password|passwd|auth|sig|signature|session)`)

// String redacts credential-shaped fragments from the input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := dbConnRegex.ReplaceAllString(input, CredentialPlaceholder)
	result = passwordRegex.ReplaceAllString(result, CredentialPlaceholder)
	result = apiKeyRegex.ReplaceAllString(result, KeyPlaceholder)
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// DatabaseURL replaces any password in a connection URL with a mask so it
// is safe to log.
func DatabaseURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}

	if parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), maskedPassword)
		return parsed.String()
	}
	return dbURL
}

// URL masks the values of secret-bearing query parameters in a target
// URL, leaving the rest of the URL intact for log readability. Returns
// the input unchanged when it does not parse.
func URL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	changed := false
	for name := range query {
		if sensitiveParamRegex.MatchString(name) {
			query[name] = []string{maskedParamValue}
			changed = true
		}
	}
	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
