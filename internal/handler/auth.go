package handler

import (
    "context"      // provides context with cancellation for DB calls
    "database/sql" // sentinel for missing rows
    "errors"       // error matching
    "net/http"     // HTTP status codes and primitives
    "regexp"       // username validation
    "strings"      // string manipulation utilities
    "time"         // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/realtime-chat/internal/cache"      // revocation cache
    "github.com/iliyamo/realtime-chat/internal/config"     // app configuration
    "github.com/iliyamo/realtime-chat/internal/model"      // user row type
    "github.com/iliyamo/realtime-chat/internal/repository" // repository errors
    "github.com/iliyamo/realtime-chat/internal/utils"      // hashing and token issuing
)

// usernamePattern restricts principals to 1-10 letters/digits so they embed
// cleanly in tokens, cache keys and rendered chat lines.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,10}$`)

// UserStore is the subset of the user repository the auth endpoints need.
type UserStore interface {
    Create(ctx context.Context, username, password string, cost int) (uint64, error)
    GetByUsername(ctx context.Context, username string) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg      config.Config
    Users    UserStore
    Sessions cache.SessionStore
}

func NewAuthHandler(cfg config.Config, u UserStore, s cache.SessionStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type credentialsReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

func errorResp(c echo.Context, code int, msg string) error {
    return c.JSON(code, echo.Map{"status": "error", "message": msg})
}
func successResp(c echo.Context, code int, msg string) error {
    return c.JSON(code, echo.Map{"status": "success", "message": msg})
}

// Register: create user, nothing more.  Login is a separate step.
func (h *AuthHandler) Register(c echo.Context) error {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return errorResp(c, http.StatusBadRequest, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    if !usernamePattern.MatchString(req.Username) {
        return errorResp(c, http.StatusBadRequest, "username must be 1-10 letters or digits")
    }
    if len(req.Password) < 8 || len(req.Password) > 30 {
        return errorResp(c, http.StatusBadRequest, "password must be 8-30 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Users.Create(ctx, req.Username, req.Password, h.Cfg.BcryptCost); err != nil {
        if errors.Is(err, repository.ErrUserExists) {
            return errorResp(c, http.StatusConflict, "User already exists")
        }
        return errorResp(c, http.StatusInternalServerError, "create user failed")
    }
    return successResp(c, http.StatusCreated, "User successfully created")
}

// Login: verify credentials, mint a token and record its jti as the single
// active session.  A login while another session is live silently
// supersedes it: the cache overwrite orphans the previous jti.
func (h *AuthHandler) Login(c echo.Context) error {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return errorResp(c, http.StatusBadRequest, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return errorResp(c, http.StatusBadRequest, "username/password required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByUsername(ctx, req.Username)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return errorResp(c, http.StatusUnauthorized, "Wrong username or password")
        }
        return errorResp(c, http.StatusInternalServerError, "query failed")
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return errorResp(c, http.StatusUnauthorized, "Wrong username or password")
    }

    jti, err := utils.NewJTI()
    if err != nil {
        return errorResp(c, http.StatusInternalServerError, "issue token failed")
    }
    ttl := time.Duration(h.Cfg.TokenTTLMin) * time.Minute
    token, err := utils.NewChatToken(h.Cfg.JWTSecret, u.Username, jti, ttl)
    if err != nil {
        return errorResp(c, http.StatusInternalServerError, "issue token failed")
    }
    // The cache entry is what makes the token live; if it cannot be
    // written the token would be dead on arrival, so fail the login.
    if err := h.Sessions.Set(ctx, u.Username, jti); err != nil {
        return errorResp(c, http.StatusInternalServerError, "save session failed")
    }

    return c.JSON(http.StatusOK, echo.Map{
        "status":   "success",
        "message":  "Successfully logged in",
        "token":    token,
        "username": u.Username,
    })
}

// Logout: verify the presented token is the active session, then delete the
// cache entry.  The token itself stays structurally valid until exp, but
// without a cache entry every is-active check fails from here on.
func (h *AuthHandler) Logout(c echo.Context) error {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return errorResp(c, http.StatusUnauthorized, "missing bearer token")
    }
    raw := strings.TrimPrefix(auth, "Bearer ")

    claims, err := utils.VerifyChatToken(h.Cfg.JWTSecret, raw)
    if err != nil {
        return errorResp(c, http.StatusUnauthorized, "invalid token")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if !h.Sessions.IsActive(ctx, claims.Name, claims.ID) {
        return errorResp(c, http.StatusUnauthorized, "Token is not active")
    }
    if err := h.Sessions.Delete(ctx, claims.Name); err != nil {
        return errorResp(c, http.StatusInternalServerError, "Token revocation error")
    }
    return successResp(c, http.StatusOK, "Successfully logged out")
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "username": c.Get("username"),
    })
}
