package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"eyewear/internal/domain/model"
	repo "eyewear/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func TestNormalizeItems_MergesDuplicatesInOrder(t *testing.T) {
	got, err := normalizeItems([]OrderItemInput{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []OrderItemInput{
		{ProductID: 3, Quantity: 5},
		{ProductID: 1, Quantity: 2},
	}, got)
}

func TestNormalizeItems_Invalid(t *testing.T) {
	_, err := normalizeItems(nil)
	assert.True(t, IsKind(err, KindValidation))

	_, err = normalizeItems([]OrderItemInput{{ProductID: 1, Quantity: -1}})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "items[0].quantity", he.Details["field"])
}

func TestPriceItems_SnapshotsPriceAndName(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	products := new(ProductRepoMock)
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Frame A", Price: 50, IsActive: true}, nil)
	products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Name: "Frame B", Price: 30, IsActive: true}, nil)

	lines, err := priceItems(ctx, products, []OrderItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, now)
	require.NoError(t, err)

	if assert.Len(t, lines, 2) {
		assert.Equal(t, "Frame A", lines[0].ProductNameSnapshot)
		assert.Equal(t, int64(100), lines[0].Subtotal)
		assert.Equal(t, int64(30), lines[1].Subtotal)
		assert.Equal(t, now, lines[1].CreatedAt)
	}
	total, err := CalcTotal(lines)
	require.NoError(t, err)
	assert.Equal(t, int64(130), total)
	products.AssertExpectations(t)
}

func TestPriceItems_MissingOrInactive(t *testing.T) {
	ctx := context.Background()

	products := new(ProductRepoMock)
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{}, repo.ErrNotFound)
	products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Price: 10, IsActive: false}, nil)

	_, err := priceItems(ctx, products, []OrderItemInput{{ProductID: 1, Quantity: 1}}, time.Now())
	assert.True(t, IsKind(err, KindNotFound))

	_, err = priceItems(ctx, products, []OrderItemInput{{ProductID: 2, Quantity: 1}}, time.Now())
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, he.Kind)
	assert.Equal(t, int64(2), he.Details["product_id"])
}

func TestPriceItems_Overflow(t *testing.T) {
	products := new(ProductRepoMock)
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Price: 1000, IsActive: true}, nil)

	_, err := priceItems(context.Background(), products, []OrderItemInput{{ProductID: 1, Quantity: math.MaxInt64 / 10}}, time.Now())
	assert.True(t, IsKind(err, KindValidation))
}

func TestNormalizeItems_MergeOverflow(t *testing.T) {
	_, err := normalizeItems([]OrderItemInput{
		{ProductID: 1, Quantity: math.MaxInt64},
		{ProductID: 1, Quantity: math.MaxInt64},
	})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, he.Kind)
	assert.Equal(t, "items[1].quantity", he.Details["field"])

	got, err := normalizeItems([]OrderItemInput{
		{ProductID: 1, Quantity: math.MaxInt64 - 1},
		{ProductID: 1, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got[0].Quantity)
}

func TestPriceItems_RejectsNonPositiveQuantity(t *testing.T) {
	products := new(ProductRepoMock)

	_, err := priceItems(context.Background(), products, []OrderItemInput{{ProductID: 1, Quantity: -2}}, time.Now())
	assert.True(t, IsKind(err, KindValidation))
	products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestPriceItems_TotalOverflow(t *testing.T) {
	products := new(ProductRepoMock)
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Price: math.MaxInt64 / 2, IsActive: true}, nil)
	products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Price: math.MaxInt64 / 2, IsActive: true}, nil)

	_, err := priceItems(context.Background(), products, []OrderItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}}, time.Now())
	assert.True(t, IsKind(err, KindValidation))
}

func TestCalcTotal_Overflow(t *testing.T) {
	_, err := CalcTotal([]model.OrderItem{{Subtotal: math.MaxInt64}, {Subtotal: 1}})
	assert.True(t, IsKind(err, KindValidation))

	_, err = CalcTotal([]model.OrderItem{{Subtotal: -1}})
	assert.True(t, IsKind(err, KindValidation))
}

func TestStockLines_SortedByProductID(t *testing.T) {
	lines := stockLines([]model.OrderItem{
		{ProductID: 7, Quantity: 1},
		{ProductID: 2, Quantity: 3},
		{ProductID: 5, Quantity: 2},
	})
	assert.Equal(t, []StockLine{{ProductID: 2, Quantity: 3}, {ProductID: 5, Quantity: 2}, {ProductID: 7, Quantity: 1}}, lines)
}
