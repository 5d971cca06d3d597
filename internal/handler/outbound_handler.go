package handler

import (
	"go-scan-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OutboundHandler struct {
	outbound service.OutboundService
}

func NewOutboundHandler(outbound service.OutboundService) *OutboundHandler {
	return &OutboundHandler{outbound: outbound}
}

type OutboundRequest struct {
	Barcode   string `json:"barcode"`
	ProductID *uint  `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// RecordOutbound logs a scan. Stock counters are not touched.
// POST /api/v1/outbound
func (h *OutboundHandler) RecordOutbound(c *fiber.Ctx) error {
	var req OutboundRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	record, err := h.outbound.Record(c.UserContext(), service.OutboundRequest{
		Barcode:    req.Barcode,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		OperatorID: getUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *OutboundHandler) GetOutbound(c *fiber.Ctx) error {
	records, total, err := h.outbound.List(c.UserContext(), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": records, "total": total})
}

func (h *OutboundHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.outbound.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *OutboundHandler) GetPopular(c *fiber.Ctx) error {
	items, err := h.outbound.Popular(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}
