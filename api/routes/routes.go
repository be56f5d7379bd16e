package routes

import (
	"time"

	"stepauth/api/handler"
	"stepauth/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Login          *handler.LoginHandler
	TwoFactor      *handler.TwoFactorHandler
	AuthMiddleware middleware.AuthMiddleware
	SetupRate      *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	loginHandler *handler.LoginHandler,
	twoFactorHandler *handler.TwoFactorHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Login:          loginHandler,
		TwoFactor:      twoFactorHandler,
		AuthMiddleware: authMiddleware,
		// Setup routes run behind RequireAuth, so their limiter buckets by
		// account; unauthenticated login routes stay keyed by client IP.
		SetupRate: middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute).WithKeyFunc(accountKey),
		LoginRate: middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func accountKey(c echo.Context) string {
	if accountID, ok := middleware.AccountIDFromContext(c); ok {
		return accountID.String()
	}
	return c.RealIP()
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/auth/login", r.Login.Login, r.LoginRate.Middleware())
	e.POST("/auth/login/challenge", r.Login.Challenge, r.LoginRate.Middleware())
	e.POST("/auth/login/verify", r.Login.Verify, r.LoginRate.Middleware())

	twoFactor := e.Group("/2fa", r.AuthMiddleware.RequireAuth)
	twoFactor.POST("/setup", r.TwoFactor.Setup, r.SetupRate.Middleware())
	twoFactor.POST("/setup/confirm", r.TwoFactor.ConfirmSetup, r.SetupRate.Middleware())
	twoFactor.POST("/setup/resend", r.TwoFactor.ResendSetup, r.SetupRate.Middleware())
	twoFactor.DELETE("/setup/:method", r.TwoFactor.CancelSetup)
	twoFactor.GET("/status", r.TwoFactor.Status)
	twoFactor.PUT("/preferred-method", r.TwoFactor.SetPreferredMethod)
	twoFactor.DELETE("/methods/:method", r.TwoFactor.RemoveMethod)
	twoFactor.POST("/disable/request", r.TwoFactor.DisableRequest, r.SetupRate.Middleware())
	twoFactor.POST("/disable", r.TwoFactor.Disable, r.SetupRate.Middleware())
	twoFactor.POST("/recovery-codes/regenerate", r.TwoFactor.RegenerateRecoveryCodes)
	twoFactor.GET("/trusted-devices", r.TwoFactor.ListTrustedDevices)
	twoFactor.DELETE("/trusted-devices/:id", r.TwoFactor.RevokeTrustedDevice)
}
