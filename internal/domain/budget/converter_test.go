package budget

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/domain/discount"
	"github.com/vendaria/pos-api/internal/domain/sale"
)

// --- Mock implementations ---

type mockBudgetRepo struct {
	byID             map[string]*Budget
	markConvertedErr error
	convertedSaleID  string
}

func (m *mockBudgetRepo) Create(_ context.Context, b *Budget) error {
	if m.byID == nil {
		m.byID = make(map[string]*Budget)
	}
	m.byID[b.ID] = b
	return nil
}

func (m *mockBudgetRepo) GetByID(_ context.Context, id string) (*Budget, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockBudgetRepo) MarkConverted(_ context.Context, id, saleID string) error {
	if m.markConvertedErr != nil {
		return m.markConvertedErr
	}
	b, ok := m.byID[id]
	if !ok || b.Status != StatusOpen {
		return ErrNotOpen
	}
	b.Status = StatusConverted
	b.ConvertedSaleID = saleID
	m.convertedSaleID = saleID
	return nil
}

type mockSaleRepo struct {
	lastSale  *sale.Sale
	lastItems []sale.Item
}

func (m *mockSaleRepo) CreateWithItems(_ context.Context, s *sale.Sale, items []sale.Item) error {
	m.lastSale = s
	m.lastItems = items
	return nil
}

func (m *mockSaleRepo) GetByID(_ context.Context, _ string) (*sale.Sale, []sale.Item, error) {
	return m.lastSale, m.lastItems, nil
}

type mockCatalog struct {
	decremented map[string]int
}

func (m *mockCatalog) ListProducts(_ context.Context) ([]catalog.Product, error) {
	return nil, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, _ string) (*catalog.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) GetService(_ context.Context, _ string) (*catalog.ServiceItem, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) DecrementStock(_ context.Context, productID string, qty int) (int, bool, error) {
	if m.decremented == nil {
		m.decremented = make(map[string]int)
	}
	m.decremented[productID] += qty
	return 0, false, nil
}

// --- Helpers ---

func openBudget(id string) *Budget {
	return &Budget{
		ID:        id,
		Status:    StatusOpen,
		CreatedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Lines: []Line{
			{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ServiceID: "s1", Name: "Install", Quantity: 1, UnitPrice: decimal.RequireFromString("25.00")},
		},
	}
}

func newConverterFixture(budgets *mockBudgetRepo) (*Converter, *mockSaleRepo, *mockCatalog) {
	saleRepo := &mockSaleRepo{}
	cat := &mockCatalog{}
	pipeline := sale.NewPipeline(
		discount.NewPolicy(nil),
		sale.NewWriter(saleRepo, cat),
		sale.NewReconciler(cat),
	)
	return NewConverter(budgets, pipeline), saleRepo, cat
}

// --- Tests ---

func TestConvert_Success(t *testing.T) {
	budgets := &mockBudgetRepo{byID: map[string]*Budget{"b1": openBudget("b1")}}
	conv, saleRepo, cat := newConverterFixture(budgets)

	result, err := conv.Convert(context.Background(), "b1", "card", "converted quote")

	require.NoError(t, err)
	require.NotNil(t, result.Sale)
	// Totals come from the quote: 2*10.00 + 25.00.
	assert.True(t, decimal.RequireFromString("45.00").Equal(result.Sale.Total))
	assert.Equal(t, "b1", result.Sale.SourceBudgetID)
	assert.Equal(t, discount.TypeNone, result.Sale.DiscountType)

	// Budget flipped and linked to the committed sale.
	assert.Equal(t, StatusConverted, budgets.byID["b1"].Status)
	assert.Equal(t, result.Sale.ID, budgets.byID["b1"].ConvertedSaleID)
	assert.Equal(t, result.Sale.ID, saleRepo.lastSale.ID)

	// Product lines decrement stock; service lines do not.
	assert.Equal(t, 2, cat.decremented["p1"])
	assert.Len(t, cat.decremented, 1)
}

func TestConvert_NotFound(t *testing.T) {
	conv, _, _ := newConverterFixture(&mockBudgetRepo{})

	_, err := conv.Convert(context.Background(), "ghost", "cash", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConvert_AlreadyConverted(t *testing.T) {
	b := openBudget("b1")
	b.Status = StatusConverted
	budgets := &mockBudgetRepo{byID: map[string]*Budget{"b1": b}}
	conv, saleRepo, _ := newConverterFixture(budgets)

	_, err := conv.Convert(context.Background(), "b1", "cash", "")

	require.ErrorIs(t, err, ErrAlreadyConverted)
	assert.Nil(t, saleRepo.lastSale)
}

func TestConvert_Canceled(t *testing.T) {
	b := openBudget("b1")
	b.Status = StatusCanceled
	budgets := &mockBudgetRepo{byID: map[string]*Budget{"b1": b}}
	conv, saleRepo, _ := newConverterFixture(budgets)

	_, err := conv.Convert(context.Background(), "b1", "cash", "")

	require.ErrorIs(t, err, ErrCanceled)
	assert.Nil(t, saleRepo.lastSale)
}

func TestConvert_StatusUpdateFailureReturnsResult(t *testing.T) {
	budgets := &mockBudgetRepo{
		byID:             map[string]*Budget{"b1": openBudget("b1")},
		markConvertedErr: errors.New("connection reset"),
	}
	conv, saleRepo, _ := newConverterFixture(budgets)

	result, err := conv.Convert(context.Background(), "b1", "card", "")

	var statusErr *StatusUpdateError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "b1", statusErr.BudgetID)
	assert.Equal(t, saleRepo.lastSale.ID, statusErr.SaleID)

	// The sale itself succeeded and must be returned alongside the error.
	require.NotNil(t, result)
	assert.Equal(t, saleRepo.lastSale.ID, result.Sale.ID)
}

func TestConvert_LostRaceOnStatusUpdate(t *testing.T) {
	budgets := &mockBudgetRepo{
		byID:             map[string]*Budget{"b1": openBudget("b1")},
		markConvertedErr: ErrNotOpen,
	}
	conv, _, _ := newConverterFixture(budgets)

	result, err := conv.Convert(context.Background(), "b1", "card", "")

	var statusErr *StatusUpdateError
	require.ErrorAs(t, err, &statusErr)
	assert.ErrorIs(t, err, ErrNotOpen)
	require.NotNil(t, result)
}

func TestBudgetTotal(t *testing.T) {
	b := openBudget("b1")
	assert.True(t, decimal.RequireFromString("45.00").Equal(b.Total()))
}
