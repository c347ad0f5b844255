// Package sanitize redacts registry credentials and tokens from text before it
// reaches any log sink.
package sanitize

import (
	"regexp"
	"strings"
)

// Redacted replaces every secret value
const Redacted = "[REDACTED]"

// SecretPatterns contains regex patterns for detecting potential secrets.
// Content digests (sha256:<hex>) are intentionally not matched: they are
// logged throughout a build.
var SecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(token|secret|password|passwd|auth)[=:]\s*[^\s,]{4,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),                    // Bearer tokens
	regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/]+=*`),                          // Basic auth headers
	regexp.MustCompile(`ghp_[a-zA-Z0-9]{36,}`),                                  // GitHub PATs (ghcr.io)
	regexp.MustCompile(`[a-zA-Z0-9_-]{20,}\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), // JWT registry tokens
	regexp.MustCompile(`(?i)"(auth|password|identitytoken|registrytoken|token)"\s*:\s*"[^"]+"`),
}

// userinfoPattern matches credentials embedded in a registry URL
var userinfoPattern = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s:]+:[^/@\s]+@`)

var separatorPattern = regexp.MustCompile(`[=:]\s*`)

// SanitizeString replaces potential secrets in a string with [REDACTED]
func SanitizeString(message string) string {
	result := userinfoPattern.ReplaceAllString(message, "${1}"+Redacted+"@")
	for _, pattern := range SecretPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			// Keep the key name, redact the value
			if strings.HasPrefix(match, `"`) {
				key := match[:strings.Index(match[1:], `"`)+2]
				return key + `:"` + Redacted + `"`
			}
			if strings.ContainsAny(match, "=:") {
				parts := separatorPattern.Split(match, 2)
				if len(parts) == 2 {
					return parts[0] + "=" + Redacted
				}
			}
			if fields := strings.Fields(match); len(fields) == 2 {
				return fields[0] + " " + Redacted
			}
			return Redacted
		})
	}
	return result
}

// SanitizeArgs sanitizes each element of a command line, redacting the value
// that follows a credential flag such as --password.
func SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	redactNext := false
	for i, arg := range args {
		if redactNext {
			out[i] = Redacted
			redactNext = false
			continue
		}
		lower := strings.ToLower(arg)
		if lower == "--password" {
			out[i] = arg
			redactNext = true
			continue
		}
		if strings.HasPrefix(lower, "--password=") {
			out[i] = "--password=" + Redacted
			continue
		}
		out[i] = SanitizeString(arg)
	}
	return out
}

// TruncateSecret returns the first four characters of a secret followed by
// "...", or "..." alone when the secret is too short to show any of it
func TruncateSecret(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= 4 {
		return "..."
	}
	return string(runes[:4]) + "..."
}
