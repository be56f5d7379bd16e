package handler

import (
	"errors"
	"net/http"

	"stepauth/api/middleware"
	"stepauth/internal/dto"
	"stepauth/internal/entity"
	"stepauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type TwoFactorHandler struct {
	Service  *service.EnrollmentService
	Validate *validator.Validate
}

func NewTwoFactorHandler(svc *service.EnrollmentService, validate *validator.Validate) *TwoFactorHandler {
	return &TwoFactorHandler{Service: svc, Validate: validate}
}

func (h *TwoFactorHandler) Setup(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.SetupRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	method, _ := entity.ParseMethod(req.Method)
	result, err := h.Service.StartSetup(c.Request().Context(), accountID, method, req.Destination)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SetupResponse{
		Method:          string(result.Method),
		Secret:          result.Secret,
		ProvisioningURL: result.ProvisioningURL,
		Delivery:        result.Delivery,
	})
}

func (h *TwoFactorHandler) ConfirmSetup(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.ConfirmSetupRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	method, _ := entity.ParseMethod(req.Method)
	result, err := h.Service.ConfirmSetup(c.Request().Context(), accountID, method, req.Code)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ConfirmSetupResponse{
		Enabled:       true,
		RecoveryCodes: result.RecoveryCodes,
	})
}

func (h *TwoFactorHandler) ResendSetup(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.ResendSetupRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	method, _ := entity.ParseMethod(req.Method)
	result, err := h.Service.ResendSetupCode(c.Request().Context(), accountID, method)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SetupResponse{Method: string(result.Method), Delivery: result.Delivery})
}

func (h *TwoFactorHandler) CancelSetup(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	method, ok := entity.ParseMethod(c.Param("method"))
	if !ok {
		return writeError(c, http.StatusBadRequest, errors.New("invalid method"))
	}
	if err := h.Service.CancelSetup(c.Request().Context(), accountID, method); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TwoFactorHandler) Status(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	status, err := h.Service.Status(c.Request().Context(), accountID)
	if err != nil {
		return writeServiceError(c, err)
	}

	masked := make(map[string]string, len(status.MaskedDestinations))
	for method, destination := range status.MaskedDestinations {
		masked[string(method)] = destination
	}
	return c.JSON(http.StatusOK, dto.StatusResponse{
		Enabled:                status.Enabled,
		PreferredMethod:        string(status.PreferredMethod),
		ConfiguredMethods:      dto.MethodStrings(status.ConfiguredMethods),
		MaskedDestinations:     masked,
		RecoveryCodesRemaining: status.RecoveryCodesRemaining,
	})
}

func (h *TwoFactorHandler) SetPreferredMethod(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.PreferredMethodRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	method, _ := entity.ParseMethod(req.Method)
	if err := h.Service.SetPreferredMethod(c.Request().Context(), accountID, method); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PreferredMethodResponse{PreferredMethod: req.Method})
}

func (h *TwoFactorHandler) RemoveMethod(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	method, ok := entity.ParseMethod(c.Param("method"))
	if !ok {
		return writeError(c, http.StatusBadRequest, errors.New("invalid method"))
	}

	// The replacement preferred method rides in the body, which may be empty.
	var req dto.RemoveMethodRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSON(c, &req); err != nil {
			return writeError(c, http.StatusBadRequest, err)
		}
		if err := h.validate(req); err != nil {
			return writeError(c, http.StatusBadRequest, err)
		}
	}
	replacement, _ := entity.ParseMethod(req.ReplacementPreferred)

	result, err := h.Service.RemoveMethod(c.Request().Context(), accountID, method, replacement)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.RemoveMethodResponse{Removed: result.Removed, NowDisabled: result.NowDisabled})
}

func (h *TwoFactorHandler) DisableRequest(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	result, err := h.Service.RequestDisable(c.Request().Context(), accountID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.DisableRequestResponse{Method: string(result.Method), Delivery: result.Delivery})
}

func (h *TwoFactorHandler) Disable(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.DisableConfirmRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.Disable(c.Request().Context(), accountID, sessionID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.DisableConfirmResponse{Disabled: true})
}

func (h *TwoFactorHandler) RegenerateRecoveryCodes(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	codes, err := h.Service.RegenerateRecoveryCodes(c.Request().Context(), accountID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.RecoveryCodesResponse{RecoveryCodes: codes})
}

func (h *TwoFactorHandler) ListTrustedDevices(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	devices, err := h.Service.ListTrustedDevices(c.Request().Context(), accountID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.TrustedDeviceResponsesFromEntities(devices))
}

func (h *TwoFactorHandler) RevokeTrustedDevice(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	deviceRowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid trusted device id"))
	}
	removed, err := h.Service.RevokeTrustedDevice(c.Request().Context(), accountID, deviceRowID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.RemoveTrustedDeviceResponse{Removed: removed})
}

func (h *TwoFactorHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
