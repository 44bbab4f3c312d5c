package handler

import (
	"net/http"
	"strconv"

	"eyewear/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/orders（AdminRoleGuardの後ろに置く）
type AdminOrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type PaymentStatusUpdateRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (h *AdminOrderHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/status", h.updateStatus)
	g.PUT("/:id/payment", h.updatePayment)
}

// 顧客向けの絞り込みに user_id と期間（from/to）を足したもの
func (h *AdminOrderHandler) list(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	in, field, ok := parseListQuery(c)
	if !ok {
		return badRequest(c, field, "invalid "+field)
	}

	if v := c.QueryParam("user_id"); v != "" {
		uid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || uid <= 0 {
			return badRequest(c, "user_id", "invalid user_id")
		}
		in.UserID = &uid
	}

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return badRequest(c, "from", "invalid from")
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return badRequest(c, "to", "invalid to")
	}
	if from != nil && to != nil && to.Before(*from) {
		return badRequest(c, "to", "to must not be before from")
	}
	in.From = from
	in.To = to

	out, err := h.uc.ListOrders(c.Request().Context(), p, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id", "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id", "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}

	out, err := h.uc.UpdateOrderStatus(c.Request().Context(), p, id, usecase.UpdateOrderStatusInput{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updatePayment(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id", "invalid id")
	}

	var req PaymentStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}

	out, err := h.uc.UpdatePaymentStatus(c.Request().Context(), p, id, usecase.UpdatePaymentStatusInput{
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
