package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors[field] = append(s.Errors[field], problem)
}

// NotYetAvailableError tells a share-link visitor the note exists but is
// still sealed, and when it unlocks.
type NotYetAvailableError struct {
	Message      string `json:"message"`
	DeliveryDate string `json:"delivery_date"`
	Status       int    `json:"-"`
}

func (n *NotYetAvailableError) Code() int {
	return n.Status
}

var (
	MalformedBodyError  = NewSimple(400, "Malformed request body")
	InternalServerError = NewSimple(500, "Internal server error")

	NotFoundError     = NewSimple(404, "Resource not found")
	UnauthorizedError = NewSimple(401, "Missing or invalid credentials")

	InvalidAuthTokenError    = NewSimple(401, "Invalid authorization token")
	ExistingEmailError       = NewSimple(400, "Email already exists")
	CredentialsMismatchError = NewSimple(400, "Credentials mismatch")

	InvalidMediaTypeError = NewSimple(415, "Unsupported media type")
	FormJSONRequiredError = NewSimple(400, "Multipart requests must carry a 'json_payload' field")
	MissingFileNameError  = NewSimple(400, "Attachment file name cannot be empty")

	// Mutation rejections are user-facing outcomes, not faults: the note
	// has crossed its delivery boundary and is sealed for good.
	NoteDeliveredError = NewSimple(409, "Note has already been delivered and can no longer be modified")
	NotePastDueError   = NewSimple(409, "Note has passed its delivery date and can no longer be modified")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	ok := errors.As(err, &ve)
	if !ok {
		return nil
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			problems[field] = append(problems[field], "This field is required")
		case "min":
			problems[field] = append(problems[field], "Value is too short, min: "+fe.Param())
		case "max":
			problems[field] = append(problems[field], "Value is too long, max: "+fe.Param())
		case "gt":
			problems[field] = append(problems[field], "Value must be greater than "+fe.Param())
		case "hasupper":
			problems[field] = append(problems[field], "Value must have at least one uppercase character")
		case "haslower":
			problems[field] = append(problems[field], "Value must have at least one lowercase character")
		case "hasdigit":
			problems[field] = append(problems[field], "Value must have at least one number")
		case "hasspecial":
			problems[field] = append(problems[field], "Value must have at least one special character")
		case "nodupes":
			problems[field] = append(problems[field], "Value cannot contain duplicates")
		case "email":
			problems[field] = append(problems[field], "Value must be a valid email address")

		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}

	return &StructuredError{
		Errors: problems,
		Status: http.StatusBadRequest,
	}
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewNotYetAvailable(deliveryDate string) *NotYetAvailableError {
	return &NotYetAvailableError{
		Message:      "This note is not yet available",
		DeliveryDate: deliveryDate,
		Status:       http.StatusForbidden,
	}
}

func NewInvalidParamTypeError(name, dataType string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' has invalid type, expected: %s", name, dataType)
}

func NewInvalidFileExtError(ext string) *APIError {
	return NewSimple(http.StatusBadRequest, "Attachments of type '%s' are not accepted", ext)
}

func NewAttachmentTooLargeError(maxBytes int64) *APIError {
	return NewSimple(http.StatusBadRequest, "Attachment exceeds the maximum size of %d bytes", maxBytes)
}
