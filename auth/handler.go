package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"wordchain/domain"

	"github.com/gin-gonic/gin"
)

var (
	ErrMissingTokenStr          = "missing-token"
	ErrExpiredTokenStr          = "expired-token"
	ErrServerTimeoutStr         = "server-timeout"
	ErrInvalidRequestFormatStr  = "bad-request-format"
	ErrInvalidCredentialsStr    = "invalid-credentials"
	ErrUnknownStr               = "unknown-error"
	ErrUsernameAlreadyExistsStr = "username-already-exists"
	ErrWeakPasswordStr          = "weak-password"
	ErrPasswordTooLongStr       = "password-too-long"
	ErrInvalidUsernameFormatStr = "invalid-username-format"
	ErrAccountCreatedButNoToken = "account-created-but-no-token"
)

// ContextUserIdKey is where RequireAuthMiddleware stores the caller's id.
const ContextUserIdKey = "id"

type authHandler struct {
	authService  AuthService
	cookieMaxAge time.Duration
}

func NewAuthHandler(service AuthService, cookieMaxAge time.Duration) *authHandler {
	return &authHandler{authService: service, cookieMaxAge: cookieMaxAge}
}

// UserId returns the id set by RequireAuthMiddleware.
func UserId(ctx *gin.Context) (int64, bool) {
	v, ok := ctx.Get(ContextUserIdKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func redactToken(token string) string {
	tokenParts := strings.Split(token, ".")
	if len(tokenParts) != 3 {
		return "<malformed>"
	}
	sig := []rune(tokenParts[2])
	if len(sig) > 10 {
		sig = append(sig[:10], []rune(strings.Repeat("*", len(sig)-10))...)
	}
	return tokenParts[0] + "." + tokenParts[1] + "." + string(sig)
}

func (ah *authHandler) setTokenCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie("token", token, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
}

func (ah *authHandler) RequireAuthMiddleware(trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie("token")
		if err != nil {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}

		id, err := ah.authService.VerifyToken(token)

		if err != nil {
			clientIP := ctx.ClientIP()

			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg),
				errors.Is(err, domain.ErrInvalidTokenSignature),
				errors.Is(err, domain.ErrCorruptedToken):

				slog.Warn("RequireAuthMiddleware: suspicious token attempt",
					"ip", clientIP,
					"user_agent", ctx.Request.UserAgent(),
					"error", err.Error(),
					"token", redactToken(token),
				)

				time.Sleep(trollTime)
				ctx.Status(http.StatusInternalServerError)
				ctx.Abort()

			case errors.Is(err, domain.ErrExpiredToken):
				slog.Info("RequireAuthMiddleware: token expired", "ip", clientIP)
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
				ctx.Abort()

			default:
				slog.Error("RequireAuthMiddleware: internal auth error",
					"ip", clientIP,
					"error", err.Error(),
				)
				ctx.String(http.StatusUnauthorized, ErrUnknownStr)
				ctx.Abort()
			}

			return
		}

		ctx.Set(ContextUserIdKey, id)
		ctx.Next()
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// credentialFailures maps service errors to responses, first match wins.
// A row with an action applies to that handler only. A zero body answers
// with the status alone.
var credentialFailures = []struct {
	target error
	status int
	body   string
	action string
}{
	{ErrIncorrectPassword, http.StatusUnauthorized, ErrInvalidCredentialsStr, ""},
	{domain.ErrUserNotFound, http.StatusUnauthorized, ErrInvalidCredentialsStr, ""},
	{domain.ErrDuplicateUsername, http.StatusConflict, ErrUsernameAlreadyExistsStr, ""},
	{ErrWeakPassword, http.StatusBadRequest, ErrWeakPasswordStr, ""},
	{ErrPasswordTooLong, http.StatusBadRequest, ErrPasswordTooLongStr, ""},
	{ErrInvalidUsernameFormat, http.StatusBadRequest, ErrInvalidUsernameFormatStr, ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrServerTimeoutStr, ""},
	{context.Canceled, 499, "", ""}, // client closed request
	{domain.UnexpectedTokenGenerationError, http.StatusInternalServerError, ErrAccountCreatedButNoToken, "Signup"},
}

func writeCredentialFailure(ctx *gin.Context, action string, username string, err error) {
	defer ctx.Abort()
	for _, f := range credentialFailures {
		if !errors.Is(err, f.target) || (f.action != "" && f.action != action) {
			continue
		}
		if f.status >= http.StatusInternalServerError {
			slog.Error(action+": token generation error", "error", err.Error(), "ip", ctx.ClientIP(), "username", username)
		}
		if f.body == "" {
			ctx.Status(f.status)
		} else {
			ctx.String(f.status, f.body)
		}
		return
	}

	slog.Error(action+": unexpected error",
		"error", err.Error(),
		"ip", ctx.ClientIP(),
		"user_agent", ctx.Request.UserAgent(),
		"username", username,
	)
	ctx.String(http.StatusInternalServerError, ErrUnknownStr)
}

func (ah *authHandler) handleCredentials(ctx *gin.Context, action string, successStatus int, call func(context.Context, string, string) (string, error)) {
	var body credentials
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	token, err := call(ctx.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeCredentialFailure(ctx, action, body.Username, err)
		return
	}

	ah.setTokenCookie(ctx, token)
	ctx.Status(successStatus)
}

func (ah *authHandler) LoginHandler(ctx *gin.Context) {
	ah.handleCredentials(ctx, "Login", http.StatusOK, ah.authService.Login)
}

func (ah *authHandler) SignupHandler(ctx *gin.Context) {
	ah.handleCredentials(ctx, "Signup", http.StatusCreated, ah.authService.Signup)
}

func (ah *authHandler) RefreshSessionHandler(ctx *gin.Context) {
	token, err := ctx.Cookie("token")
	if err != nil {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := ah.authService.VerifyToken(token)
	if err != nil {
		slog.Warn("Refresh: invalid token provided",
			"ip", ctx.ClientIP(),
			"error", err.Error(),
			"token", redactToken(token),
		)
		ctx.String(http.StatusUnauthorized, "bad-token")
		return
	}

	newToken, err := ah.authService.GenerateToken(id)
	if err != nil {
		slog.Error("Refresh: failed to generate new token", "error", err.Error(), "user_id", id)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ah.setTokenCookie(ctx, newToken)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) LogoutHandler(ctx *gin.Context) {
	ctx.SetCookie("token", "", -1, "/", "", true, true)
}
