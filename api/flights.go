package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/seatbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     logrus.FieldLogger
}

func NewFlightHandler(service flights.FlightUseCase, log logrus.FieldLogger) *FlightHandler {
	return &FlightHandler{service: service, log: log}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.list)
	router.GET("/flights/:id", h.get)
	router.GET("/flights/:id/classes/:classId", h.fareClass)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// get returns the flight together with the remaining seats of each fare class.
func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid flight id")
		return
	}
	availability, err := h.service.Availability(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

func (h *FlightHandler) fareClass(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid flight id")
		return
	}
	classID, err := strconv.ParseInt(c.Param("classId"), 10, 64)
	if err != nil {
		badRequest(c, "invalid fare class id")
		return
	}
	class, err := h.service.GetFareClass(c.Request.Context(), flightID, classID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, class)
}
