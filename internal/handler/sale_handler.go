package handler

import (
	"context"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/service"
	"toko-beras-pos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SaleHandler struct {
	sales service.SalesService
	log   logrus.FieldLogger
}

func NewSaleHandler(sales service.SalesService, log logrus.FieldLogger) *SaleHandler {
	return &SaleHandler{sales: sales, log: log}
}

type CartRequest struct {
	Channel  model.SaleChannel         `json:"channel"`
	Items    []service.CartItemRequest `json:"items"`
	Discount decimal.Decimal           `json:"discount"`
	TaxRate  decimal.Decimal           `json:"tax_rate"`
}

type CreateSaleRequest struct {
	Channel model.SaleChannel         `json:"channel"`
	Items   []service.CartItemRequest `json:"items"`
	Payment service.PaymentRequest    `json:"payment"`
	// Complete closes an offline sale right after checkout (walk-in customer).
	Complete bool `json:"complete"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

// POST /api/v1/cart/validate
func (h *SaleHandler) ValidateCart(c *fiber.Ctx) error {
	var req CartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	cart, err := h.sales.BuildCart(c.UserContext(), req.Channel, req.Items)
	if err != nil {
		return respondError(c, h.log, "ValidateCart", err)
	}
	totals, err := cart.Totals(req.Discount, req.TaxRate)
	if err != nil {
		return respondError(c, h.log, "ValidateCart", err)
	}
	return c.JSON(fiber.Map{"cart": cart, "totals": totals})
}

// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.Complete && req.Channel != model.ChannelOffline {
		return badRequest(c, "Only offline sales can be completed at checkout")
	}

	ctx := c.UserContext()
	actor := actorFrom(c)
	sale, err := h.sales.CheckoutItems(ctx, req.Channel, req.Items, req.Payment, actor)
	if err != nil {
		return respondError(c, h.log, "CreateSale", err)
	}

	if req.Complete {
		completed, err := h.sales.Complete(ctx, sale.ID, actor)
		if err != nil {
			// the sale and its stock movements are committed; it stays pending
			logger.LogError(h.log, "handler", "CreateSale", "complete after checkout", sale.TransactionNumber, err)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"message": "Sale recorded but not completed",
				"warning": err.Error(),
				"data":    sale,
			})
		}
		sale = completed
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// GET /api/v1/sales?status=&channel=&from=&to=&search=
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	filter := repository.SaleFilter{
		Pagination: pagination(c),
		Status:     model.SaleStatus(c.Query("status")),
		Channel:    model.SaleChannel(c.Query("channel")),
		Search:     c.Query("search"),
	}
	var err error
	if filter.From, err = queryTime(c, "from", false); err != nil {
		return respondError(c, h.log, "GetSales", err)
	}
	if filter.To, err = queryTime(c, "to", true); err != nil {
		return respondError(c, h.log, "GetSales", err)
	}

	page, err := h.sales.ListSales(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, "GetSales", err)
	}
	return c.JSON(fiber.Map{
		"data":      page.Items,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "GetSale", err)
	}
	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "GetSale", err)
	}
	return c.JSON(fiber.Map{"data": sale})
}

// POST /api/v1/sales/:id/cancel
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "Cancel", err)
	}
	var req ReasonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}
	sale, err := h.sales.Cancel(c.UserContext(), id, req.Reason, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, "Cancel", err)
	}
	return c.JSON(fiber.Map{"message": "Sale cancelled", "data": sale})
}

// POST /api/v1/sales/:id/reject-payment
func (h *SaleHandler) RejectPayment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "RejectPayment", err)
	}
	var req ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	sale, err := h.sales.RejectPayment(c.UserContext(), id, req.Reason, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, "RejectPayment", err)
	}
	return c.JSON(fiber.Map{"message": "Payment rejected", "data": sale})
}

// POST /api/v1/sales/:id/confirm-payment
func (h *SaleHandler) ConfirmPayment(c *fiber.Ctx) error {
	return h.step(c, "ConfirmPayment", "Payment confirmed", h.sales.ConfirmPayment)
}

// POST /api/v1/sales/:id/ready
func (h *SaleHandler) MarkReady(c *fiber.Ctx) error {
	return h.step(c, "MarkReady", "Order ready for pickup", h.sales.MarkReadyForPickup)
}

// POST /api/v1/sales/:id/complete
func (h *SaleHandler) Complete(c *fiber.Ctx) error {
	return h.step(c, "Complete", "Sale completed", h.sales.Complete)
}

func (h *SaleHandler) step(c *fiber.Ctx, funcName, message string, fn func(ctx context.Context, id uuid.UUID, actor service.Actor) (*model.Sale, error)) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, funcName, err)
	}
	sale, err := fn(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, funcName, err)
	}
	return c.JSON(fiber.Map{"message": message, "data": sale})
}
