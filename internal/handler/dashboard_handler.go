package handler

import (
	"time"

	"toko-beras-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type DashboardHandler struct {
	service service.DashboardService
	log     logrus.FieldLogger
}

func NewDashboardHandler(s service.DashboardService, log logrus.FieldLogger) *DashboardHandler {
	return &DashboardHandler{service: s, log: log}
}

// GetStockMovement returns daily inbound/outbound totals for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return respondError(c, h.log, "GetStockMovement", err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics. The sales figures cover
// from..to, defaulting to today.
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	start, err := queryTime(c, "from", false)
	if err != nil {
		return respondError(c, h.log, "GetDashboardStats", err)
	}
	end, err := queryTime(c, "to", true)
	if err != nil {
		return respondError(c, h.log, "GetDashboardStats", err)
	}
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	stats, err := h.service.GetDashboardStats(c.UserContext(), from, to)
	if err != nil {
		return respondError(c, h.log, "GetDashboardStats", err)
	}

	return c.JSON(stats)
}
