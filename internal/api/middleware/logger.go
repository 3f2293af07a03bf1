package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/config"
)

// Logger attaches a request scoped zerolog logger to the request context and
// logs every finished request at the configured level.
func Logger(cfg config.LoggerServer) echo.MiddlewareFunc {
	attach := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			l := log.With().
				Str("id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("url", req.URL.Path).
				Logger()

			c.SetRequest(req.WithContext(l.WithContext(req.Context())))
			return next(c)
		}
	}

	requestLogger := echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:      true,
		LogLatency:     true,
		LogRemoteIP:    true,
		LogUserAgent:   true,
		LogError:       true,
		LogHeaders:     headersToLog(cfg),
		LogQueryParams: queryToLog(cfg),
		HandleError:    true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			l := zerolog.Ctx(c.Request().Context())

			e := l.WithLevel(cfg.RequestLevel)
			if v.Error != nil {
				e = l.Warn().Err(v.Error)
			}

			e = e.
				Int("status", v.Status).
				Dur("duration", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("user_agent", v.UserAgent)

			if cfg.LogRequestQuery && len(v.QueryParams) > 0 {
				query := zerolog.Dict()
				for k, values := range v.QueryParams {
					query = query.Strs(k, values)
				}
				e = e.Dict("query", query)
			}
			if cfg.LogRequestHeader && len(v.Headers) > 0 {
				e = e.Interface("headers", v.Headers)
			}

			e.Msg("http request")
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return attach(requestLogger(next))
	}
}

func headersToLog(cfg config.LoggerServer) []string {
	if !cfg.LogRequestHeader {
		return nil
	}
	return []string{"Accept-Language", echo.HeaderContentType, "User-Agent"}
}

// the management secret is never logged
func queryToLog(cfg config.LoggerServer) []string {
	if !cfg.LogRequestQuery {
		return nil
	}
	return []string{"limit"}
}
