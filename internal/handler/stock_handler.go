package handler

import (
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type StockHandler struct {
	inventory service.InventoryService
	ledger    service.LedgerService
	log       logrus.FieldLogger
}

func NewStockHandler(inventory service.InventoryService, ledger service.LedgerService, log logrus.FieldLogger) *StockHandler {
	return &StockHandler{inventory: inventory, ledger: ledger, log: log}
}

type BulkMovementRequest struct {
	Movements []service.MovementRequest `json:"movements"`
}

// movementFilter reads the shared ledger query parameters.
func movementFilter(c *fiber.Ctx) (repository.MovementFilter, error) {
	filter := repository.MovementFilter{
		Pagination: pagination(c),
		Type:       model.MovementType(c.Query("type")),
		Search:     c.Query("search"),
		Ascending:  c.Query("order") == "asc",
	}
	var err error
	if filter.From, err = queryTime(c, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(c, "to", true); err != nil {
		return filter, err
	}
	return filter, nil
}

func movementPage(page *service.MovementPage, actor service.Actor) fiber.Map {
	return fiber.Map{
		"data":      presentMovements(page.Items, actor),
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	}
}

// GET /api/v1/movements?product_id=&type=&from=&to=&search=&order=asc
func (h *StockHandler) GetMovements(c *fiber.Ctx) error {
	filter, err := movementFilter(c)
	if err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid product_id")
		}
		filter.ProductID = &id
	}
	page, err := h.ledger.Query(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	return c.JSON(movementPage(page, actorFrom(c)))
}

// POST /api/v1/movements/bulk
func (h *StockHandler) ApplyBulk(c *fiber.Ctx) error {
	var req BulkMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	for i := range req.Movements {
		req.Movements[i].SaleID = nil
	}

	actor := actorFrom(c)
	movements, err := h.inventory.ApplyBulk(c.UserContext(), req.Movements, actor)
	if err != nil {
		return respondError(c, h.log, "ApplyBulk", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Stock updated",
		"data":    presentMovements(movements, actor),
	})
}

// GET /api/v1/reconcile
func (h *StockHandler) ReconcileAll(c *fiber.Ctx) error {
	reports, err := h.inventory.ReconcileAll(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "ReconcileAll", err)
	}
	drifted := 0
	for _, r := range reports {
		if !r.OK {
			drifted++
		}
	}
	return c.JSON(fiber.Map{"data": reports, "checked": len(reports), "drifted": drifted})
}
