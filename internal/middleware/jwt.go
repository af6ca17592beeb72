package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/realtime-chat/internal/cache" // revocation cache lookup
    "github.com/iliyamo/realtime-chat/internal/utils" // token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer chat token and
// injects the principal's username into the request context.  Validation is
// two-stage, matching the websocket handshake: the token must verify
// structurally (signature, expiry) and its jti must still be the active one
// in the revocation cache.  A token that was superseded by a newer login or
// revoked by logout fails the second stage even though it would still parse.
// Protected handlers read the principal via `c.Get("username")`.
func JWTAuth(secret string, sessions cache.SessionStore) echo.MiddlewareFunc {
    // The outer function returns a middleware function.  Echo executes this
    // once when registering the middleware.
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        // The returned handler is invoked for each incoming HTTP request.
        return func(c echo.Context) error {
            // Read the Authorization header.  A valid header should start
            // with "Bearer " followed by the token.  If it doesn't, respond
            // with 401 Unauthorized indicating that authentication is
            // required.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            // Remove the "Bearer " prefix to obtain the raw token string.
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Structural check: signature, algorithm and expiry.  The codec
            // collapses all failures into expired/invalid; both map to 401.
            claims, err := utils.VerifyChatToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Revocation check: the jti inside the token must still be the
            // single active identifier for this principal.
            if !sessions.IsActive(c.Request().Context(), claims.Name, claims.ID) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
            }

            // Store the principal in the context for downstream handlers.
            c.Set("username", claims.Name)
            // Call the next handler in the chain and return its result.
            return next(c)
        }
    }
}
