package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/instrument-relay/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var v = validator.New()

type namesPayload struct {
	Names  []string `json:"names" validate:"omitempty,max=2,unique,dive,required,max=10,endswith=_seq"`
	Mode   string   `json:"mode" validate:"omitempty,oneof=sync async"`
	Custom bool     `json:"custom"`
}

func (p *namesPayload) Validate() error {
	if p.Custom {
		return CustomValidationErrors{{Field: "custom", Message: "is not allowed"}}
	}
	return v.Struct(p)
}

func bind(t *testing.T, body string) error {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	return BindAndValidate(c, &namesPayload{})
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		fields  []errs.FieldError
	}{
		{
			name:    "too many items",
			body:    `{"names":["a_id_seq","b_id_seq","c_id_seq"]}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "names", Error: "must not exceed 2"}},
		},
		{
			name:    "duplicates",
			body:    `{"names":["a_id_seq","a_id_seq"]}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "names", Error: "must not contain duplicates"}},
		},
		{
			name:    "item suffix",
			body:    `{"names":["a_id"]}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "names[0]", Error: "must end with _seq"}},
		},
		{
			name:    "item length",
			body:    `{"names":["abcdef_id_seq"]}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "names[0]", Error: "must not exceed 10 characters"}},
		},
		{
			name:    "oneof",
			body:    `{"mode":"later"}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "mode", Error: "must be one of: sync async"}},
		},
		{
			name:    "custom errors",
			body:    `{"custom":true}`,
			message: "Validation failed",
			fields:  []errs.FieldError{{Field: "custom", Error: "is not allowed"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bind(t, tt.body)

			var httpErr *errs.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Status)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.Equal(t, tt.fields, httpErr.Errors)
		})
	}
}

func TestBindAndValidate_Valid(t *testing.T) {
	assert.NoError(t, bind(t, `{"names":["a_id_seq"],"mode":"async"}`))
}

func TestBindAndValidate_MalformedBody(t *testing.T) {
	err := bind(t, `{"names":`)

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Empty(t, httpErr.Errors)
	assert.NotEmpty(t, httpErr.Message)
}

func TestExtractValidationError_PlainError(t *testing.T) {
	msg, fields := extractValidationError(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), msg)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}
