// internal/wizard/validators/errors.go
package validators

import "strings"

const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidValue    = "INVALID_VALUE"
)

// ValidationError is one field-level problem. Field is the section-scoped
// error key, e.g. "personalInfo_firstName".
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors is an ordered list of validation errors; order follows the form
// layout so the first entry is the field to focus.
type Errors []ValidationError

// Map returns key→message. The first message for a key wins.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, ve := range e {
		if _, ok := out[ve.Field]; !ok {
			out[ve.Field] = ve.Message
		}
	}
	return out
}

// FirstKey is the key of the first error, or "" when there are none.
func (e Errors) FirstKey() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Field
}

func (e Errors) Has(field string) bool {
	for _, ve := range e {
		if ve.Field == field {
			return true
		}
	}
	return false
}

// String joins the errors as "field: message" pairs.
func (e Errors) String() string {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Field+": "+ve.Message)
	}
	return strings.Join(parts, "; ")
}

// WithPrefix returns the errors whose key starts with prefix.
func (e Errors) WithPrefix(prefix string) Errors {
	var out Errors
	for _, ve := range e {
		if strings.HasPrefix(ve.Field, prefix) {
			out = append(out, ve)
		}
	}
	return out
}

type collector struct {
	errs Errors
}

func (c *collector) add(field, code, message string) {
	c.errs = append(c.errs, ValidationError{Field: field, Code: code, Message: message})
}

func (c *collector) required(field, value, label string) bool {
	if strings.TrimSpace(value) == "" {
		c.add(field, CodeMissingRequired, label+" is required")
		return false
	}
	return true
}
