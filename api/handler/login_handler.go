package handler

import (
	"net/http"

	"stepauth/internal/dto"
	"stepauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type LoginHandler struct {
	Service  *service.LoginService
	Validate *validator.Validate
}

func NewLoginHandler(svc *service.LoginService, validate *validator.Validate) *LoginHandler {
	return &LoginHandler{Service: svc, Validate: validate}
}

func (h *LoginHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.Login(c.Request().Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  stringPtr(c.RealIP()),
		UserAgent:  stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken:           result.AccessToken,
		ExpiresIn:             result.ExpiresIn,
		RefreshToken:          result.RefreshToken,
		RefreshExpiresIn:      result.RefreshExpiresIn,
		TwoFactorRequired:     result.TwoFactorRequired,
		PartialToken:          result.PartialToken,
		PartialTokenExpiresIn: result.PartialTokenExpiresIn,
		AllowedMethods:        result.AllowedMethods,
	})
}

// Challenge dispatches (or re-dispatches) a login code for sms/email.
func (h *LoginHandler) Challenge(c echo.Context) error {
	var req dto.ChallengeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	delivery, err := h.Service.RequestChallenge(c.Request().Context(), req.PartialToken, req.Method)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ChallengeResponse{Delivery: delivery})
}

func (h *LoginHandler) Verify(c echo.Context) error {
	var req dto.VerifyRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.Verify(c.Request().Context(), service.VerifyInput{
		PartialToken:   req.PartialToken,
		Method:         req.Method,
		Code:           req.Code,
		RecoveryCode:   req.RecoveryCode,
		DeviceID:       req.DeviceID,
		DeviceName:     req.DeviceName,
		RememberDevice: req.RememberDevice,
		IPAddress:      stringPtr(c.RealIP()),
		UserAgent:      stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	response := dto.VerifyResponse{
		AccessToken:      result.AccessToken,
		ExpiresIn:        result.ExpiresIn,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresIn: result.RefreshExpiresIn,
		TrustedDeviceSet: result.TrustedDeviceSet,
		RecoveryCodeUsed: result.RecoveryCodeUsed,
	}
	if result.RecoveryCodeUsed {
		remaining := result.RecoveryCodesRemaining
		response.RecoveryCodesRemaining = &remaining
	}
	return c.JSON(http.StatusOK, response)
}

func (h *LoginHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
