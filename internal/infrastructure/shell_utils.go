package infrastructure

import "strings"

const shellSpecial = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// redactedFlags name argv flags whose values must never reach the logs
var redactedFlags = map[string]bool{
	"--password": true,
}

// ShellEscapeCommand renders argv as a copy-pasteable shell line for the
// logs. Values of credential flags are masked.
func ShellEscapeCommand(binary string, args ...string) string {
	parts := []string{ShellEscape(binary)}
	mask := false
	for _, arg := range args {
		if mask {
			parts = append(parts, "********")
			mask = false
			continue
		}
		if redactedFlags[arg] {
			mask = true
		}
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}

// ShellEscape single-quotes s when it contains shell metacharacters.
// exec passes argv through untouched, so this is for display only.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecial) {
		return s
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
