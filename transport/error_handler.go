package transport

import (
	"errors"

	"github.com/go-kit/log"
)

// ErrorHandler receives a transport error to be processed for diagnostic purposes.
// Usually this means logging the error.
type ErrorHandler interface {
	Handle(err error)
}

// LogErrorHandler is a transport error handler implementation which logs an error.
type LogErrorHandler struct {
	logger log.Logger
}

func NewLogErrorHandler(logger log.Logger) *LogErrorHandler {
	return &LogErrorHandler{
		logger: logger,
	}
}

func (h *LogErrorHandler) Handle(err error) {
	var te *Error
	if errors.As(err, &te) {
		h.logger.Log("domain", te.Domain, "err", te.Err)
		return
	}
	h.logger.Log("err", err)
}

// ErrorHandlerFunc is an adapter to allow the use of ordinary functions as
// ErrorHandlers.
type ErrorHandlerFunc func(err error)

// Handle implements ErrorHandler.
func (f ErrorHandlerFunc) Handle(err error) { f(err) }
