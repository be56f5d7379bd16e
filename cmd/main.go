package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"stepauth/api/handler"
	apiMiddleware "stepauth/api/middleware"
	"stepauth/api/routes"
	"stepauth/config"
	"stepauth/internal/repository"
	"stepauth/internal/service"
	"stepauth/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	db := config.ConnectDB()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	accessSecret := []byte(os.Getenv("JWT_SECRET"))
	issuer := os.Getenv("JWT_ISSUER")
	if len(accessSecret) == 0 {
		logger.Fatal("JWT_SECRET is required")
	}

	serviceConfig := service.Config{
		Issuer:               issuer,
		PartialTokenTTL:      5 * time.Minute,
		EnrollmentTTL:        10 * time.Minute,
		EnrollmentAttemptCap: 5,
		CodeTTL:              5 * time.Minute,
		CodeDigits:           6,
		DispatchCooldown:     time.Minute,
		RecoveryBatchSize:    10,
		TrustedDeviceTTL:     30 * 24 * time.Hour,
		LockoutThreshold:     5,
		LockoutWindow:        15 * time.Minute,
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      30 * 24 * time.Hour,
	}

	accessManager := utils.JWTManager{
		Secret:         accessSecret,
		Issuer:         issuer,
		AccessTokenTTL: serviceConfig.AccessTokenTTL,
	}
	accessIssuer := service.JWTAccessIssuer{Manager: &accessManager}

	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewTwoFactorProfileRepository(db)
	pendingRepo := repository.NewPendingEnrollmentRepository(db)
	partialTokenRepo := repository.NewPartialSessionTokenRepository(db)
	oneTimeCodeRepo := repository.NewOneTimeCodeRepository(db)
	recoveryRepo := repository.NewRecoveryCodeRepository(db)
	trustedDeviceRepo := repository.NewTrustedDeviceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)

	clock := service.RealClock{}
	hasher := service.BcryptHasher{}

	emailSender := service.NewResendEmailSender(
		os.Getenv("RESEND_API_KEY"),
		os.Getenv("EMAIL_FROM"),
		issuer,
	)
	smsSender := service.NewHTTPSMSSender(
		os.Getenv("SMS_GATEWAY_URL"),
		os.Getenv("SMS_GATEWAY_API_KEY"),
		os.Getenv("SMS_SENDER_ID"),
	)

	totpProvider := service.NewTOTPProvider(issuer, clock)
	challengeIssuer := service.NewChallengeIssuer(oneTimeCodeRepo, emailSender, smsSender, totpProvider, hasher, clock, serviceConfig)
	recoveryManager := service.NewRecoveryCodeManager(recoveryRepo, hasher, clock, serviceConfig)
	deviceLedger := service.NewTrustedDeviceLedger(trustedDeviceRepo, clock, serviceConfig)
	lockoutGovernor := service.NewLockoutGovernor(profileRepo, securityRepo, clock, serviceConfig)
	partialTokens := service.NewPartialTokenService(partialTokenRepo, clock, serviceConfig)

	enrollmentService := service.NewEnrollmentService(
		accountRepo,
		profileRepo,
		pendingRepo,
		oneTimeCodeRepo,
		sessionRepo,
		securityRepo,
		challengeIssuer,
		recoveryManager,
		deviceLedger,
		lockoutGovernor,
		totpProvider,
		validate,
		clock,
		serviceConfig,
	)
	loginService := service.NewLoginService(
		accountRepo,
		profileRepo,
		sessionRepo,
		securityRepo,
		partialTokens,
		challengeIssuer,
		recoveryManager,
		deviceLedger,
		lockoutGovernor,
		hasher,
		accessIssuer,
		clock,
		serviceConfig,
	)

	// Expiry is enforced on every access; the janitor only keeps the tables
	// from accumulating dead rows.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			if err := sessionRepo.CleanupExpired(ctx); err != nil {
				logger.WithError(err).Warn("session cleanup failed")
			}
			if err := partialTokens.ReapExpired(ctx); err != nil {
				logger.WithError(err).Warn("partial token cleanup failed")
			}
		}
	}()

	loginHandler := handler.NewLoginHandler(loginService, validate)
	twoFactorHandler := handler.NewTwoFactorHandler(enrollmentService, validate)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, loginHandler, twoFactorHandler, authMiddleware)
	router.RegisterRoutes()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", addr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
