package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Ping(c *gin.Context) {
	okResponse(c, "pong", nil)
}

func (h *Handler) ListTokens(c *gin.Context) {
	tokens, err := h.service.ListSupportedTokens()
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list tokens")
		return
	}
	okResponse(c, "supported tokens", tokens)
}

// ListNetworks optionally filters by the ?token=SYM query.
func (h *Handler) ListNetworks(c *gin.Context) {
	networks, err := h.service.ListNetworks()
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list networks")
		return
	}

	symbol := c.Query("token")
	if symbol == "" {
		okResponse(c, "networks", networks)
		return
	}

	tokens, err := h.service.ListSupportedTokens()
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not list networks")
		return
	}
	wanted := make(map[string]bool)
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			wanted[t.Network] = true
		}
	}

	filtered := networks[:0:0]
	for _, n := range networks {
		if wanted[n.Name] {
			filtered = append(filtered, n)
		}
	}
	okResponse(c, "networks", filtered)
}
