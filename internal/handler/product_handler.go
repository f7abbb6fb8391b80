package handler

import (
	"context"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	catalog   service.CatalogService
	inventory service.InventoryService
	ledger    service.LedgerService
	log       logrus.FieldLogger
}

func NewProductHandler(catalog service.CatalogService, inventory service.InventoryService, ledger service.LedgerService, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, inventory: inventory, ledger: ledger, log: log}
}

type SetPriceRequest struct {
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
}

// GET /api/v1/products?search=&category=&low_stock=&include_inactive=&page=&page_size=
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	actor := actorFrom(c)
	filter := repository.ProductFilter{
		Pagination:   pagination(c),
		Search:       c.Query("search"),
		Category:     c.Query("category"),
		LowStockOnly: c.QueryBool("low_stock"),
		// inactive products are an admin concern
		IncludeInactive: c.QueryBool("include_inactive") && actor.Can(model.PrivProductUpdate),
	}
	page, err := h.catalog.ListActive(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, "GetProducts", err)
	}
	return c.JSON(fiber.Map{
		"data":      presentProducts(page.Items, actor),
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// GET /api/v1/products/low-stock
func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.catalog.ListLowStock(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "GetLowStock", err)
	}
	return c.JSON(fiber.Map{"data": presentProducts(products, actorFrom(c))})
}

// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "GetProduct", err)
	}
	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "GetProduct", err)
	}
	return c.JSON(fiber.Map{"data": presentProduct(product, actorFrom(c))})
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	actor := actorFrom(c)
	product, err := h.catalog.CreateProduct(c.UserContext(), req, actor)
	if err != nil {
		return respondError(c, h.log, "CreateProduct", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": presentProduct(product, actor)})
}

// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "UpdateProduct", err)
	}
	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	actor := actorFrom(c)
	// prices go through PUT /price, which needs the cost privilege to see them
	if !actor.Can(model.PrivProductViewCost) {
		req.BuyPrice = nil
	}
	product, err := h.catalog.UpdateProduct(c.UserContext(), id, req, actor)
	if err != nil {
		return respondError(c, h.log, "UpdateProduct", err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": presentProduct(product, actor)})
}

// PUT /api/v1/products/:id/price
func (h *ProductHandler) SetPrice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "SetPrice", err)
	}
	var req SetPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	actor := actorFrom(c)
	product, err := h.catalog.SetPrice(c.UserContext(), id, req.BuyPrice, req.SellPrice, actor)
	if err != nil {
		return respondError(c, h.log, "SetPrice", err)
	}
	return c.JSON(fiber.Map{"message": "Price updated", "data": presentProduct(product, actor)})
}

// POST /api/v1/products/:id/deactivate
func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActive(c, "Deactivate", h.catalog.Deactivate)
}

// POST /api/v1/products/:id/activate
func (h *ProductHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, "Activate", h.catalog.Activate)
}

func (h *ProductHandler) setActive(c *fiber.Ctx, funcName string, fn func(ctx context.Context, id uuid.UUID, actor service.Actor) (*model.Product, error)) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, funcName, err)
	}
	actor := actorFrom(c)
	product, err := fn(c.UserContext(), id, actor)
	if err != nil {
		return respondError(c, h.log, funcName, err)
	}
	return c.JSON(fiber.Map{"data": presentProduct(product, actor)})
}

// GET /api/v1/products/:id/price-history
func (h *ProductHandler) PriceHistory(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "PriceHistory", err)
	}
	history, err := h.catalog.PriceHistory(c.UserContext(), id, c.QueryInt("limit", repository.DefaultPageSize))
	if err != nil {
		return respondError(c, h.log, "PriceHistory", err)
	}
	return c.JSON(fiber.Map{"data": history})
}

// GET /api/v1/products/:id/movements
func (h *ProductHandler) GetMovements(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	if _, err := h.catalog.GetProduct(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	filter, err := movementFilter(c)
	if err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	filter.ProductID = &id
	page, err := h.ledger.Query(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, "GetMovements", err)
	}
	return c.JSON(movementPage(page, actorFrom(c)))
}

// POST /api/v1/products/:id/movements
func (h *ProductHandler) ApplyMovement(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "ApplyMovement", err)
	}
	var req service.MovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.ProductID = id
	// sale movements belong to the sales engine
	req.SaleID = nil

	actor := actorFrom(c)
	movement, err := h.inventory.ApplyMovement(c.UserContext(), req, actor)
	if err != nil {
		return respondError(c, h.log, "ApplyMovement", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock updated", "data": presentMovement(movement, actor)})
}

// PUT /api/v1/products/:id/stock
func (h *ProductHandler) SetStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "SetStock", err)
	}
	var req service.AbsoluteStockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.ProductID = id

	actor := actorFrom(c)
	movement, err := h.inventory.SetAbsoluteStock(c.UserContext(), req, actor)
	if err != nil {
		return respondError(c, h.log, "SetStock", err)
	}
	return c.JSON(fiber.Map{"message": "Stock updated", "data": presentMovement(movement, actor)})
}

// GET /api/v1/products/:id/reconcile
func (h *ProductHandler) Reconcile(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, "Reconcile", err)
	}
	report, err := h.inventory.Reconcile(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "Reconcile", err)
	}
	return c.JSON(fiber.Map{"data": report})
}
