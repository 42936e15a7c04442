package form

import "strings"

// Field names used in validation errors and form inputs.
const (
	FieldAccount = "account"
	FieldDate    = "date"
	FieldPayee   = "payee"
	FieldAmount  = "amount"
	FieldMemo    = "memo"
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field problem found before a submission.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// For returns the first message recorded for field, or "".
func (e *ValidationError) For(field string) string {
	if e == nil {
		return ""
	}
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
