package handler

import (
	"time"

	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
	"go-scan-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type CreateOrderRequest struct {
	Items          []service.OrderLine `json:"items"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	FinalAmount    *decimal.Decimal    `json:"finalAmount"`
	IdempotencyKey string              `json:"idempotencyKey"`
}

type OrderResponse struct {
	OrderID        uint              `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	Status         model.OrderStatus `json:"status"`
	Items          []model.OrderItem `json:"items"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	FinalAmount    decimal.Decimal   `json:"final_amount"`
	CreatedAt      time.Time         `json:"createdAt"`
	Replayed       bool              `json:"replayed"`
}

// CreateOrder fulfills a scanned cart. The idempotency key may also arrive
// in the Idempotency-Key header.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Get("Idempotency-Key")
	}

	result, err := h.orders.Fulfill(c.UserContext(), service.FulfillRequest{
		Lines:          req.Items,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		FinalAmount:    req.FinalAmount,
		IdempotencyKey: req.IdempotencyKey,
		OperatorID:     getUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusCreated
	if result.Replayed {
		status = fiber.StatusOK
	}
	o := result.Order
	return c.Status(status).JSON(OrderResponse{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		Items:          o.Items,
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		FinalAmount:    o.FinalAmount,
		CreatedAt:      o.CreatedAt,
		Replayed:       result.Replayed,
	})
}

// GetOrders lists orders, newest first
// GET /api/v1/orders?status=&limit=&offset=
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	orders, total, err := h.orders.List(c.UserContext(), repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": orders, "total": total})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) GetOrderByNumber(c *fiber.Ctx) error {
	order, err := h.orders.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// UpdateOrderStatus
// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	order, err := h.orders.UpdateStatus(c.UserContext(), id, req.Status, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "data": order})
}

func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.orders.Delete(c.UserContext(), id, getUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}
