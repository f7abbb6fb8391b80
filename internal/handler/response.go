package handler

import (
	"errors"
	"fmt"
	"time"

	"toko-beras-pos/internal/middleware"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/service"
	"toko-beras-pos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// actorFrom builds the acting user from what RequireAuth stored.
func actorFrom(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	actor.ID, _ = c.Locals(middleware.LocalUserID).(string)
	actor.Name, _ = c.Locals(middleware.LocalUserName).(string)
	actor.Email, _ = c.Locals(middleware.LocalUserEmail).(string)
	actor.Role, _ = c.Locals(middleware.LocalUserRole).(string)
	actor.Privileges, _ = c.Locals(middleware.LocalPrivileges).([]string)
	return actor
}

// Helper untuk parse UUID dari path
func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", service.ErrValidation, c.Params("id"))
	}
	return id, nil
}

func pagination(c *fiber.Ctx) repository.Pagination {
	return repository.Pagination{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", repository.DefaultPageSize),
	}
}

// queryTime accepts 2006-01-02 or RFC3339. A bare date used as an upper
// bound covers the whole day.
func queryTime(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s, use YYYY-MM-DD", service.ErrValidation, key)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrPaymentShort):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrStockExceeded),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateCode),
		errors.Is(err, service.ErrNoStockChange):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvariantViolation):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// respondError turns a service error into the JSON error body. Typed stock
// and transition errors are attached as details so clients can show them.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, funcName string, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}

	var (
		stock      *service.InsufficientStockError
		exceeded   *service.StockExceededError
		transition *service.TransitionError
	)
	switch {
	case errors.As(err, &stock):
		body["details"] = stock
	case errors.As(err, &exceeded):
		body["details"] = exceeded
	case errors.As(err, &transition):
		body["details"] = transition
	}

	switch status {
	case fiber.StatusInternalServerError:
		logger.LogError(log, "handler", funcName, c.Method()+" "+c.Path(), nil, err)
		body["error"] = "Internal server error"
	case fiber.StatusUnprocessableEntity:
		logger.LogError(log, "handler", funcName, c.Method()+" "+c.Path(), nil, err)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// productResponse hides buy_price from actors without product:view_cost.
// The outer field shadows the embedded one during JSON encoding.
type productResponse struct {
	model.Product
	BuyPrice *decimal.Decimal `json:"buy_price,omitempty"`
}

func presentProduct(p *model.Product, actor service.Actor) productResponse {
	resp := productResponse{Product: *p}
	if actor.Can(model.PrivProductViewCost) {
		buy := p.BuyPrice
		resp.BuyPrice = &buy
	}
	return resp
}

func presentProducts(products []model.Product, actor service.Actor) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, presentProduct(&products[i], actor))
	}
	return out
}

// movementResponse hides the product cost and the unit cost of inbound
// movements from actors without product:view_cost.
type movementResponse struct {
	model.StockMovement
	Product   *productResponse `json:"product,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

func presentMovement(m *model.StockMovement, actor service.Actor) movementResponse {
	resp := movementResponse{StockMovement: *m}
	if m.Product != nil {
		p := presentProduct(m.Product, actor)
		resp.Product = &p
	}
	if m.UnitPrice != nil && (m.Type == model.MovementOut || actor.Can(model.PrivProductViewCost)) {
		price := *m.UnitPrice
		resp.UnitPrice = &price
	}
	return resp
}

func presentMovements(movements []model.StockMovement, actor service.Actor) []movementResponse {
	out := make([]movementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, presentMovement(&movements[i], actor))
	}
	return out
}
