package httperrors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/util"
)

// NewErrorHandler returns echo's central error handler. Details of internal
// errors are hidden unless hideInternal is false.
func NewErrorHandler(hideInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := util.LogFromEchoContext(c)

		var (
			httpErr *HTTPError
			echoErr *echo.HTTPError
		)

		switch {
		case errors.As(err, &httpErr):
		case errors.As(err, &echoErr):
			httpErr = NewFromEcho(echoErr.Code, echoErr.Message).Wrap(echoErr.Internal)
		default:
			httpErr = NewHTTPError(http.StatusInternalServerError, HTTPErrorTypeGeneric, http.StatusText(http.StatusInternalServerError)).Wrap(err)
			if !hideInternal {
				httpErr.Detail = err.Error()
			}
		}

		if httpErr.Code >= http.StatusInternalServerError {
			log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
		} else {
			log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request failed")
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(httpErr.Code)
		} else {
			sendErr = c.JSON(httpErr.Code, httpErr)
		}
		if sendErr != nil {
			log.Warn().Err(sendErr).Msg("Failed to send error response")
		}
	}
}
