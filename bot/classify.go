package bot

import (
	"strings"
)

const SEARCH_PREFIX = "פ "
const SEARCH_COMMAND = "פ"
const STOP_TOKEN = "עצור"

/************************************************
/**** MARK: MESSAGE KINDS ****/
/************************************************/
const KIND_REGULAR = "regular"
const KIND_COMMAND = "command"

// Parsed is the result of classifying a direct message.
type Parsed struct {
	Kind string
	Name string
	Args []string
}

// IsCommandText reports whether text is addressed to the command table.
func IsCommandText(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "/") || strings.HasPrefix(text, "!") ||
		strings.HasPrefix(text, SEARCH_PREFIX) || text == SEARCH_COMMAND || text == STOP_TOKEN
}

// Classify splits text into a command name and its arguments. The search prefix
// and the stop token are recognised before the generic "/" and "!" grammar.
func Classify(text string) Parsed {
	text = strings.TrimSpace(text)

	switch {
	case text == STOP_TOKEN:
		return Parsed{Kind: KIND_COMMAND, Name: STOP_TOKEN}
	case text == SEARCH_COMMAND:
		return Parsed{Kind: KIND_COMMAND, Name: SEARCH_COMMAND}
	case strings.HasPrefix(text, SEARCH_PREFIX):
		return Parsed{Kind: KIND_COMMAND, Name: SEARCH_COMMAND, Args: strings.Fields(text[len(SEARCH_PREFIX):])}
	case strings.HasPrefix(text, "/") || strings.HasPrefix(text, "!"):
		fields := strings.Fields(text[1:])
		if len(fields) == 0 {
			return Parsed{Kind: KIND_COMMAND}
		}
		return Parsed{Kind: KIND_COMMAND, Name: strings.ToLower(fields[0]), Args: fields[1:]}
	}
	return Parsed{Kind: KIND_REGULAR}
}
