package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"keeway/models"
	"keeway/pkg/middleware"
	"keeway/pkg/service"
)

func (h *Handler) GenerateWallet(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.GenerateWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := h.service.Wallet.GenerateWallet(c.Request.Context(), app, input)
	switch {
	case errors.Is(err, service.ErrTokenNotSupported):
		newErrorResponse(c, http.StatusNotFound, "token not supported")
	case errors.Is(err, service.ErrNetworkNotFound):
		newErrorResponse(c, http.StatusNotFound, "network not found")
	case errors.Is(err, service.ErrAddressNotSupported):
		newErrorResponse(c, http.StatusBadRequest, "address derivation not supported on this network")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not generate wallet")
	default:
		createdResponse(c, "wallet generated", wallet)
	}
}

func (h *Handler) ListWallets(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	wallets, err := h.service.ListWallets(app)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list wallets")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	total := len(wallets)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	okPagedResponse(c, "wallets", wallets[start:end], gin.H{
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

func (h *Handler) GetWallet(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	wallet, err := h.service.GetWallet(app, c.Param("reference"))
	if errors.Is(err, service.ErrWalletNotFound) {
		newErrorResponse(c, http.StatusNotFound, "wallet not found")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not fetch wallet")
		return
	}
	okResponse(c, "wallet", wallet)
}

func (h *Handler) WalletTransactions(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	txs, err := h.service.WalletTransactions(app, c.Param("reference"))
	if errors.Is(err, service.ErrWalletNotFound) {
		newErrorResponse(c, http.StatusNotFound, "wallet not found")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not fetch transactions")
		return
	}
	okResponse(c, "transactions", txs)
}

func (h *Handler) Balance(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	blockchain := c.Query("blockchain")
	network := c.Query("network")
	token := c.Query("token")
	address := c.Query("address")
	if blockchain == "" || network == "" || token == "" || address == "" {
		newErrorResponse(c, http.StatusBadRequest, "blockchain, network, token and address are required")
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), app, blockchain, network, token, address)
	switch {
	case errors.Is(err, service.ErrTokenNotSupported):
		newErrorResponse(c, http.StatusNotFound, "token not supported")
	case errors.Is(err, service.ErrNetworkNotFound):
		newErrorResponse(c, http.StatusNotFound, "network not found")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not fetch balance")
	default:
		okResponse(c, "balance", balance)
	}
}

func (h *Handler) SendCrypto(c *gin.Context) {
	app, ok := middleware.AppFromContext(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "missing app context")
		return
	}

	var input models.SendCryptoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := h.service.SendCrypto(c.Request.Context(), app, input)
	switch {
	case errors.Is(err, service.ErrTokenNotSupported):
		newErrorResponse(c, http.StatusNotFound, "token not supported")
	case errors.Is(err, service.ErrNetworkNotFound):
		newErrorResponse(c, http.StatusNotFound, "network not found")
	case err != nil:
		newErrorResponse(c, http.StatusInternalServerError, "could not send transaction")
	default:
		okResponse(c, "transaction submitted", gin.H{"txHash": hash})
	}
}
