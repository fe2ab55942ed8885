package api

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chessinsight/chessinsight/pkg/httputil"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// LoadDocument parses and validates the embedded OpenAPI document.
func LoadDocument(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// requestValidator rejects requests that do not match the OpenAPI
// document. Requests for routes the document does not describe are passed
// through so the mux can answer 404 or 405.
type requestValidator struct {
	next   http.Handler
	router routers.Router
}

func newRequestValidator(doc *openapi3.T, next http.Handler) (*requestValidator, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &requestValidator{next: next, router: router}, nil
}

// FieldError is one entry of a validation failure's details.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v *requestValidator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		v.next.ServeHTTP(w, r)
		return
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodySize+1))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: true},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		httputil.WriteErrorWithDetails(w, http.StatusBadRequest, "invalid_request",
			"request does not match the API schema", validationDetails(err))
		return
	}
	v.next.ServeHTTP(w, r)
}

// validationDetails flattens kin-openapi errors into field errors.
func validationDetails(err error) []FieldError {
	var out []FieldError
	var walk func(error)
	walk = func(err error) {
		var multi openapi3.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi {
				walk(e)
			}
			return
		}

		var reqErr *openapi3filter.RequestError
		if errors.As(err, &reqErr) && reqErr.Err != nil {
			var nested openapi3.MultiError
			if errors.As(reqErr.Err, &nested) {
				walk(nested)
				return
			}
		}

		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) {
			out = append(out, FieldError{
				Field:   strings.Join(schemaErr.JSONPointer(), "."),
				Message: schemaErr.Reason,
			})
			return
		}
		if reqErr != nil {
			msg := reqErr.Reason
			if reqErr.Err != nil {
				msg = reqErr.Err.Error()
			}
			if msg == "" {
				msg = reqErr.Error()
			}
			out = append(out, FieldError{Message: msg})
			return
		}
		out = append(out, FieldError{Message: err.Error()})
	}
	walk(err)
	return out
}
