package handler

import (
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
	"go-scan-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	products    service.ProductService
	adjustments service.AdjustmentService
}

func NewInventoryHandler(products service.ProductService, adjustments service.AdjustmentService) *InventoryHandler {
	return &InventoryHandler{products: products, adjustments: adjustments}
}

// StockRequest is the typed adjustment body.
type StockRequest struct {
	Type     service.AdjustmentMode `json:"type"`
	Quantity int                    `json:"quantity"`
	Scope    model.StockScope       `json:"scope"`
	Reason   model.AdjustmentReason `json:"reason"`
	Note     string                 `json:"note"`
}

// AdjustmentRequest is the signed adjustment body. Either product_id or
// barcode identifies the product.
type AdjustmentRequest struct {
	ProductID      uint                   `json:"product_id"`
	Barcode        string                 `json:"barcode"`
	QuantityChange int                    `json:"quantity_change"`
	Reason         model.AdjustmentReason `json:"reason"`
	Scope          model.StockScope       `json:"scope"`
	Note           string                 `json:"note"`
}

// GetProducts lists the catalog
// GET /api/v1/products?search=&limit=&offset=
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, total, err := h.products.List(c.UserContext(), repository.ProductFilter{
		Search: c.Query("search"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": products, "total": total})
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	product, err := h.products.Get(c.UserContext(), model.RefByID(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// GetProductByBarcode serves scan lookups
// GET /api/v1/products/barcode/:barcode
func (h *InventoryHandler) GetProductByBarcode(c *fiber.Ctx) error {
	product, err := h.products.Get(c.UserContext(), model.RefByBarcode(c.Params("barcode")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	product, err := h.products.Create(c.UserContext(), req, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	updated, err := h.products.Update(c.UserContext(), id, req, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

// AdjustStock applies an add, subtract or set adjustment
// POST /api/v1/products/:id/stock
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req StockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.Reason == "" {
		req.Reason = model.ReasonAdjustment
	}

	result, err := h.adjustments.Adjust(c.UserContext(), service.AdjustmentRequest{
		Product:    model.RefByID(id),
		Mode:       req.Type,
		Quantity:   req.Quantity,
		Scope:      req.Scope,
		Reason:     req.Reason,
		OperatorID: getUserID(c),
		Note:       req.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":           "Stock updated",
		"data":              result.Product,
		"oldStock":          result.Snapshot.StockBefore,
		"newStock":          result.Snapshot.StockAfter,
		"oldAvailableStock": result.Snapshot.AvailableBefore,
		"newAvailableStock": result.Snapshot.AvailableAfter,
		"log_id":            result.Log.ID,
	})
}

// CreateAdjustment applies a signed adjustment
// POST /api/v1/inventory/adjustments
func (h *InventoryHandler) CreateAdjustment(c *fiber.Ctx) error {
	var req AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.adjustments.AdjustSigned(c.UserContext(), service.SignedAdjustmentRequest{
		Product:        model.ProductRef{ID: req.ProductID, Barcode: req.Barcode},
		QuantityChange: req.QuantityChange,
		Scope:          req.Scope,
		Reason:         req.Reason,
		OperatorID:     getUserID(c),
		Note:           req.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":             true,
		"product_id":          result.Product.ID,
		"new_stock":           result.Snapshot.StockAfter,
		"new_available_stock": result.Snapshot.AvailableAfter,
		"log_id":              result.Log.ID,
	})
}

// GetInventoryLogs returns the audit history, newest first
// GET /api/v1/products/:id/inventory-logs?limit=
func (h *InventoryHandler) GetInventoryLogs(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	logs, err := h.adjustments.History(c.UserContext(), id, c.QueryInt("limit"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": logs})
}
