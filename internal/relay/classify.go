package relay

import (
	"errors"
	"net/http"

	"github.com/nerrad567/device-relay/internal/access"
	"github.com/nerrad567/device-relay/internal/auth"
	"github.com/nerrad567/device-relay/internal/command"
	"github.com/nerrad567/device-relay/internal/device"
	"github.com/nerrad567/device-relay/internal/ownership"
)

// ErrBadRequest is returned for requests that are malformed before any
// domain check runs.
var ErrBadRequest = errors.New("relay: bad request")

// Error codes.
const (
	CodeValidation          = "validation_error"
	CodeUnknownCommand      = "unknown_command"
	CodeBadRequest          = "bad_request"
	CodeUnauthenticated     = "unauthenticated"
	CodeForbidden           = "forbidden"
	CodeUnknownDevice       = "unknown_device"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeTransport           = "transport_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeInternal            = "internal_error"
)

// Failure is the classified form of an error.
type Failure struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`

	Status int `json:"-"`
}

// Classify maps an error from any relay operation to its failure code and
// HTTP status. Messages for access and store failures are fixed strings so
// they never reveal an owner or storage internals.
func Classify(err error) Failure {
	var verr *device.ValidationError
	var perr *command.PublishError

	switch {
	case errors.As(err, &verr):
		return Failure{Code: CodeValidation, Status: http.StatusBadRequest, Message: "invalid settings", Details: verr.Fields}
	case errors.Is(err, device.ErrInvalidSetting), errors.Is(err, command.ErrEmptyChange):
		return Failure{Code: CodeValidation, Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, device.ErrUnknownCommand):
		return Failure{Code: CodeUnknownCommand, Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrBadRequest):
		return Failure{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, access.ErrUnauthenticated),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired):
		return Failure{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"}
	case errors.Is(err, access.ErrForbidden):
		return Failure{Code: CodeForbidden, Status: http.StatusForbidden, Message: "device not accessible"}
	case errors.Is(err, access.ErrUnknownDevice), errors.Is(err, device.ErrUnknownDevice):
		return Failure{Code: CodeUnknownDevice, Status: http.StatusNotFound, Message: "unknown device"}
	case errors.Is(err, ownership.ErrNotFound):
		return Failure{Code: CodeNotFound, Status: http.StatusNotFound, Message: "device not bound"}
	case errors.Is(err, ownership.ErrConflict):
		return Failure{Code: CodeConflict, Status: http.StatusConflict, Message: "device already bound to another account"}
	case errors.As(err, &perr):
		return Failure{
			Code:    CodeTransport,
			Status:  http.StatusBadGateway,
			Message: "settings stored but not delivered to the device",
			Details: unpublishedDetails(perr.Unpublished),
		}
	case errors.Is(err, access.ErrStoreUnavailable), errors.Is(err, ownership.ErrUnavailable):
		return Failure{Code: CodeUpstreamUnavailable, Status: http.StatusServiceUnavailable, Message: "ownership store unavailable"}
	default:
		return Failure{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func unpublishedDetails(fields []string) map[string]string {
	details := make(map[string]string, len(fields))
	for _, f := range fields {
		details[f] = "not published"
	}
	return details
}
