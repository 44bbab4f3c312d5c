package handler

import (
	"net/http"

	"eyewear/internal/domain/model"
	"eyewear/internal/middleware"
	"eyewear/internal/usecase"

	"github.com/labstack/echo/v4"
)

// エラーは {"error": "...", "kind": "...", "details": {...}} で返す
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{
			Error:   he.Message,
			Kind:    string(he.Kind),
			Details: he.Details,
		})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal error",
		Kind:  string(usecase.KindInternal),
	})
}

func badRequest(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   msg,
		Kind:    string(usecase.KindValidation),
		Details: map[string]any{"field": field},
	})
}

// AuthJWTが入れた操作者
func getPrincipal(c echo.Context) (model.Principal, bool) {
	return middleware.PrincipalFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error: "unauthorized",
		Kind:  string(usecase.KindUnauthorized),
	})
}
