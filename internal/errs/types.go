package errs

import "strings"

// FieldError is a field-level validation error:
//
//	{ "field": "sequences[0]", "error": "must end with _seq" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType tells the client what to do next.
type ActionType string

const (
	// ActionTypeRedirect asks the client to navigate to Value.
	ActionTypeRedirect ActionType = "redirect"

	// ActionTypeRetry asks the client to retry later. Value is a hint
	// such as a Retry-After duration.
	ActionTypeRetry ActionType = "retry"
)

// Action is an optional instruction attached to an error.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the error type for API responses.
//
//   - Code: machine-friendly code, e.g. "BAD_REQUEST" or "SEQUENCE_REGISTRY_UNAVAILABLE".
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: the client may show Message verbatim.
//   - Errors: per-field validation errors.
//   - Action: optional client instruction.
//   - Detail: diagnostic text for failures the operator must act on.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	Errors []FieldError `json:"errors"`
	Action *Action      `json:"action"`
	Detail string       `json:"detail,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// Is matches any *HTTPError, so errors.Is(err, &HTTPError{}) asks
// "is this already an API error?".
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of e with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithDetail returns a copy of e with Detail replaced.
func (e *HTTPError) WithDetail(detail string) *HTTPError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// MakeUpperCaseWithUnderscores turns "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
