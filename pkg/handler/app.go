package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"keeway/models"
	"keeway/pkg/service"
)

func (h *Handler) CreateApp(c *gin.Context) {
	var input models.CreateAppInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	app, creds, err := h.service.CreateApp(input)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not create app")
		return
	}

	// The only time the credentials are ever returned.
	createdResponse(c, "app created", gin.H{
		"app":       app,
		"apiKey":    creds.APIKey,
		"secretKey": creds.SecretKey,
	})
}

func (h *Handler) GetApp(c *gin.Context) {
	app, err := h.service.GetApp(c.Param("id"))
	if errors.Is(err, service.ErrAppNotFound) {
		newErrorResponse(c, http.StatusNotFound, "app not found")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not fetch app")
		return
	}
	okResponse(c, "app", app)
}

func (h *Handler) UpdateApp(c *gin.Context) {
	var input models.UpdateAppInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	app, err := h.service.UpdateApp(c.Param("id"), input)
	if errors.Is(err, service.ErrAppNotFound) {
		newErrorResponse(c, http.StatusNotFound, "app not found")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not update app")
		return
	}
	okResponse(c, "app updated", app)
}

func (h *Handler) DeleteApp(c *gin.Context) {
	err := h.service.DeleteApp(c.Param("id"))
	if errors.Is(err, service.ErrAppNotFound) {
		newErrorResponse(c, http.StatusNotFound, "app not found")
		return
	}
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, "could not delete app")
		return
	}
	okResponse(c, "app deleted", nil)
}
