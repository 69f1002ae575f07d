// Package validation implements the field rules of the token wizard.
//
// Every function is pure and total: malformed input is the expected case and
// maps to a field-keyed message, never to a panic or a Go error.
package validation

// Result is the outcome of a validation call. A new Result is built on every
// call; callers may keep it without copying.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// OK returns a passing result.
func OK() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

// Fail returns a failing result for a single field.
func Fail(field, message string) Result {
	return Result{Valid: false, Errors: map[string]string{field: message}}
}

// Error returns the message for field, or "" if the field passed.
func (r Result) Error(field string) string {
	return r.Errors[field]
}

// Merge combines results into a fresh Result holding the union of field
// errors. The merged result is valid only if every input is valid.
func Merge(results ...Result) Result {
	out := OK()
	for _, r := range results {
		if !r.Valid {
			out.Valid = false
		}
		for field, msg := range r.Errors {
			out.Errors[field] = msg
		}
	}
	return out
}
