package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"keeway/models"
	"keeway/pkg/middleware"
	"keeway/pkg/service"
)

func (h *Handler) SignUp(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.SignUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.SignUp(app, input)
	if errors.Is(err, service.ErrUserExists) {
		newErrorResponse(c, http.StatusConflict, "an account with this email already exists")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not create account")
		return
	}
	createdResponse(c, "account created, verification code sent", user)
}

func (h *Handler) SignIn(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.SignInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.SignIn(app, input)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		newErrorResponse(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrVerificationPending):
		newErrorResponse(c, middleware.StatusVerificationPending, "email verification pending, a new code was sent")
	case errors.Is(err, service.ErrUserBanned):
		newErrorResponse(c, http.StatusForbidden, "account is suspended")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not sign in")
	default:
		okResponse(c, "signed in", gin.H{"token": token})
	}
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.VerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.VerifyEmail(app, input)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		newErrorResponse(c, http.StatusNotFound, "account not found")
	case errors.Is(err, service.ErrInvalidCode):
		newErrorResponse(c, http.StatusBadRequest, "invalid verification code")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not verify email")
	case input.Resend:
		okResponse(c, "verification code sent", nil)
	default:
		okResponse(c, "email verified", nil)
	}
}

func (h *Handler) InitiateReset(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.InitiateResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.InitiateReset(app, input); err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not initiate reset")
		return
	}
	okResponse(c, "if the account exists, a reset code was sent", nil)
}

func (h *Handler) VerifyReset(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.VerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.VerifyReset(app, input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid reset code")
		return
	}
	okResponse(c, "reset code valid", nil)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ResetPassword(app, input)
	switch {
	case errors.Is(err, service.ErrInvalidCode):
		newErrorResponse(c, http.StatusBadRequest, "invalid reset code")
	case errors.Is(err, service.ErrUserNotFound):
		newErrorResponse(c, http.StatusNotFound, "account not found")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not reset password")
	default:
		okResponse(c, "password reset", nil)
	}
}

func (h *Handler) Profile(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}
	okResponse(c, "profile", user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	var input models.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateProfile(app, user.ID, input)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not update profile")
		return
	}
	okResponse(c, "profile updated", updated)
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	var input models.UpdatePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.UpdatePassword(app, user.ID, input)
	if errors.Is(err, service.ErrInvalidCredentials) {
		newErrorResponse(c, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not update password")
		return
	}
	okResponse(c, "password updated", nil)
}

func (h *Handler) SignOut(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	if err := h.service.SignOut(app, user.ID); err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not sign out")
		return
	}
	okResponse(c, "signed out everywhere", nil)
}

func (h *Handler) SetupTotp(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	setup, err := h.service.SetupTotp(app, user.ID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not set up totp")
		return
	}
	okResponse(c, "totp provisioned", setup)
}

func (h *Handler) ValidateTotp(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	var input models.ValidateTotpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	valid, err := h.service.ValidateTotp(app, user.ID, input)
	if errors.Is(err, service.ErrTotpNotConfigured) {
		newErrorResponse(c, http.StatusBadRequest, "totp is not configured")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not validate totp")
		return
	}
	okResponse(c, "totp checked", gin.H{"valid": valid})
}

func (h *Handler) UserWallets(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	wallets, err := h.service.UserWallets(c.Request.Context(), app, user.ID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list wallets")
		return
	}
	okResponse(c, "wallets", wallets)
}

func (h *Handler) UserWalletByToken(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	wallets, err := h.service.UserWallets(c.Request.Context(), app, user.ID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list wallets")
		return
	}

	symbol := c.Param("token")
	for _, w := range wallets {
		if strings.EqualFold(w.Token.Symbol, symbol) {
			okResponse(c, "wallet", w)
			return
		}
	}
	newErrorResponse(c, http.StatusNotFound, "no wallet for this token")
}

func (h *Handler) UserTransactions(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	txs, err := h.service.UserTransactions(app, user.ID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list transactions")
		return
	}

	tokenFilter := c.Query("token")
	networkFilter := c.Query("network")
	if tokenFilter == "" && networkFilter == "" {
		okResponse(c, "transactions", txs)
		return
	}

	wallets, err := h.service.UserWallets(c.Request.Context(), app, user.ID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list transactions")
		return
	}
	keep := make(map[string]bool)
	for _, w := range wallets {
		if tokenFilter != "" && !strings.EqualFold(w.Token.Symbol, tokenFilter) {
			continue
		}
		if networkFilter != "" && !strings.EqualFold(w.Token.Network, networkFilter) {
			continue
		}
		keep[w.Reference] = true
	}

	filtered := txs[:0:0]
	for _, tx := range txs {
		if keep[tx.WalletID] {
			filtered = append(filtered, tx)
		}
	}
	okResponse(c, "transactions", filtered)
}

type userSendInput struct {
	models.SendCryptoInput
	TotpToken string `json:"totpToken"`
}

func (h *Handler) UserSend(c *gin.Context) {
	app, _ := middleware.AppFromContext(c)
	user, ok := middleware.UserFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing user context")
		return
	}

	var input userSendInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := h.service.UserSend(c.Request.Context(), app, user.ID, input.SendCryptoInput, input.TotpToken)
	switch {
	case errors.Is(err, service.ErrTotpInvalid):
		newErrorResponse(c, http.StatusForbidden, "totp token invalid")
	case errors.Is(err, service.ErrInsufficientFunds):
		newErrorResponse(c, http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, service.ErrTokenNotSupported):
		newErrorResponse(c, http.StatusNotFound, "token not supported")
	case errors.Is(err, service.ErrWalletNotFound):
		newErrorResponse(c, http.StatusNotFound, "no wallet for this token")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not send transaction")
	default:
		okResponse(c, "transaction submitted", gin.H{"txHash": hash})
	}
}
