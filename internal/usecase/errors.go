package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"eyewear/internal/domain/model"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindConflict          ErrorKind = "conflict"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindInternal          ErrorKind = "internal"
)

// handlerがそのままレスポンスにできるエラー。
// Detailsはフィールド名や商品IDなど、画面表示に必要な情報だけ入れる
type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Details map[string]any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kindForStatus(status),
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// errがkindのHTTPErrorか
func IsKind(err error, kind ErrorKind) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Kind == kind
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	}
	return KindInternal
}

func validationError(field, message string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Kind:    KindValidation,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

func orderNotFoundError(orderID int64) error {
	return &HTTPError{
		Status:  http.StatusNotFound,
		Kind:    KindNotFound,
		Message: "order not found",
		Details: map[string]any{"order_id": orderID},
	}
}

func productNotFoundError(productID int64) error {
	return &HTTPError{
		Status:  http.StatusNotFound,
		Kind:    KindNotFound,
		Message: "product not found",
		Details: map[string]any{"product_id": productID},
	}
}

func insufficientStockError(productID, available, requested int64) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Kind:    KindInsufficientStock,
		Message: "insufficient stock",
		Details: map[string]any{
			"product_id": productID,
			"available":  available,
			"requested":  requested,
		},
	}
}

func forbiddenError(message string) error {
	return &HTTPError{
		Status:  http.StatusForbidden,
		Kind:    KindForbidden,
		Message: message,
	}
}

func invalidTransitionError(from, to model.OrderStatus) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change order status from %s to %s", from, to),
		Details: map[string]any{"from": string(from), "to": string(to)},
	}
}

// PENDING以外の注文を編集しようとした
func orderNotEditableError(status model.OrderStatus) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Kind:    KindInvalidTransition,
		Message: "order can only be edited while pending",
		Details: map[string]any{"from": string(status)},
	}
}

func conflictError(message string) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

func unauthorizedError() error {
	return &HTTPError{
		Status:  http.StatusUnauthorized,
		Kind:    KindUnauthorized,
		Message: "unauthorized",
	}
}

// 中身は返さない（ログにだけ出す）
func internalError() error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: "internal error",
	}
}
