package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github/chapool/yield-vault/internal/api/httperrors"
)

// APIKeyLookup accepts the key as bearer token or, for websocket clients that
// cannot set headers, as api-key query parameter.
const APIKeyLookup = "header:" + echo.HeaderAuthorization + ",query:api-key"

// APIKeyAuth rejects requests not carrying secret with 401.
func APIKeyAuth(secret string) echo.MiddlewareFunc {
	return echomiddleware.KeyAuthWithConfig(echomiddleware.KeyAuthConfig{
		KeyLookup:  APIKeyLookup,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			if len(secret) == 0 {
				return false, nil
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(secret)) == 1, nil
		},
		ErrorHandler: func(err error, _ echo.Context) error {
			return httperrors.ErrUnauthorizedInvalidAPIKey.Wrap(err)
		},
	})
}
