package api

import (
	"net/http"

	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
	log     logrus.FieldLogger
}

func NewPaymentHandler(service payment.PaymentUseCase, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings/:code/payments", h.start)
	router.POST("/payments/callback", h.callback)
}

func (h *PaymentHandler) start(c *gin.Context) {
	order, err := h.service.StartPayment(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// callback accepts the gateway's verdict over HTTP, the same way the worker does from Kafka.
func (h *PaymentHandler) callback(c *gin.Context) {
	var cb payment.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		badRequest(c, err.Error())
		return
	}
	if cb.OrderID == "" {
		badRequest(c, "order_id is required")
		return
	}

	rec, err := h.service.HandleCallback(c.Request.Context(), cb)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if rec == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, rec)
}
