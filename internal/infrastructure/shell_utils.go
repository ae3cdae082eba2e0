package infrastructure

import "strings"

// shellSpecialChars have meaning to a POSIX shell and force quoting
const shellSpecialChars = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// QuoteArg renders s so that it can be pasted into a shell as a single word.
// Used for log lines only; exec.Command never goes through a shell.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecialChars) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellEscapeCommand formats binary and args as a copy-pasteable command line
func ShellEscapeCommand(binary string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, QuoteArg(binary))
	for _, arg := range args {
		words = append(words, QuoteArg(arg))
	}
	return strings.Join(words, " ")
}
