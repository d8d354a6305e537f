package llm

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion marks a response that carried no usable text.
var ErrEmptyCompletion = errors.New("completion service returned an empty response")

// ServiceError is the single failure category of the completion service.
// Auth, quota, transport and malformed-response failures are not told apart.
type ServiceError struct {
	Model string
	// Status is the upstream HTTP status, or 0 when no response was received.
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion service (model %s, status %d): %v", e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("completion service (model %s): %v", e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newServiceError(model string, err error) *ServiceError {
	se := &ServiceError{Model: model, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		se.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		se.Status = reqErr.HTTPStatusCode
	}
	return se
}
