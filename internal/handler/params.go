package handler

import (
	"strconv"
	"time"

	"eyewear/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// :id を取り出す
func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 一覧の共通クエリ（status, payment_status, page, limit）
func parseListQuery(c echo.Context) (usecase.ListOrdersInput, string, bool) {
	in := usecase.ListOrdersInput{
		Page:          defaultPage,
		Limit:         defaultLimit,
		OrderStatus:   c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment_status"),
	}

	// page（default 1）
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return in, "page", false
		}
		in.Page = p
	}

	// limit（default 20）
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return in, "limit", false
		}
		in.Limit = l
	}

	return in, "", true
}

// RFC3339の日時。空ならnil
func parseTimeQuery(c echo.Context, name string) (*time.Time, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, false
	}
	return &t, true
}
