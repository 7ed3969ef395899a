package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status    bool        `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Metadata  interface{} `json:"metadata,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	logrus.WithField("path", c.FullPath()).Error(message)
	c.AbortWithStatusJSON(statusCode, Response{
		Status:    false,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

func okResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status:    true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func okPagedResponse(c *gin.Context, message string, data, metadata interface{}) {
	c.JSON(http.StatusOK, Response{
		Status:    true,
		Message:   message,
		Data:      data,
		Metadata:  metadata,
		Timestamp: time.Now().Unix(),
	})
}

func createdResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status:    true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}
