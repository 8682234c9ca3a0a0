package validation

import "strings"

// FieldErrors maps a field name to its human-readable failure messages.
// Handlers typically surface First() as the display message.
type FieldErrors map[string][]string

// Add appends a message for a field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Empty reports whether no field failed.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// First returns the first message of the first failing field, in the order
// fields were registered at validation time.
func (fe FieldErrors) First() string {
	for _, field := range fieldOrder {
		if msgs, ok := fe[field]; ok && len(msgs) > 0 {
			return msgs[0]
		}
	}
	for _, msgs := range fe {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	var parts []string
	for field, msgs := range fe {
		for _, m := range msgs {
			parts = append(parts, field+": "+m)
		}
	}
	return strings.Join(parts, "; ")
}

// fieldOrder fixes the display priority of First across all schemas.
var fieldOrder = []string{
	"name", "email", "password",
	"question", "options", "option_index",
}
