package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productLine(id string, price string, qty, stock int) Line {
	return Line{
		ItemID:       id,
		Kind:         KindProduct,
		Name:         "Product " + id,
		UnitPrice:    decimal.RequireFromString(price),
		Quantity:     qty,
		StockCeiling: &stock,
	}
}

func serviceLine(id string, price string, qty int) Line {
	return Line{
		ItemID:    id,
		Kind:      KindService,
		Name:      "Service " + id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestAddLine_MergesSameItem(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(productLine("p1", "10.00", 1, 5)))
	require.NoError(t, c.AddLine(productLine("p1", "10.00", 2, 5)))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Lines()[0].Quantity)
}

func TestAddLine_DefaultsToQuantityOne(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(productLine("p1", "10.00", 0, 5)))
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestAddLine_RejectsOverCeiling(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(productLine("p1", "10.00", 2, 2)))

	err := c.AddLine(productLine("p1", "10.00", 1, 2))
	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "p1", oos.ItemID)
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestAddLine_SameIDDifferentKind(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(productLine("x", "10.00", 1, 5)))
	require.NoError(t, c.AddLine(serviceLine("x", "25.00", 1)))

	assert.Equal(t, 2, c.Len())
}

func TestAddLine_ServiceHasNoCeiling(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(serviceLine("s1", "25.00", 500)))
	assert.Equal(t, 500, c.Lines()[0].Quantity)
}

func TestSetQuantity_AboveCeilingPreservesQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLine(productLine("p1", "10.00", 1, 2)))

	err := c.SetQuantity("p1", KindProduct, 5)

	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "p1", ins.ItemID)
	assert.Equal(t, 5, ins.Requested)
	assert.Equal(t, 2, ins.Available)
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLine(productLine("p1", "10.00", 1, 5)))
	require.NoError(t, c.AddLine(productLine("p2", "20.00", 1, 5)))

	require.NoError(t, c.SetQuantity("p1", KindProduct, 0))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "p2", c.Lines()[0].ItemID)
}

func TestSetQuantity_UnknownLine(t *testing.T) {
	c := New()

	err := c.SetQuantity("ghost", KindProduct, 1)
	require.Error(t, err)
}

func TestSubtotal(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLine(productLine("p1", "10.00", 2, 5)))
	require.NoError(t, c.AddLine(serviceLine("s1", "25.00", 1)))

	assert.True(t, decimal.RequireFromString("45.00").Equal(c.Subtotal()))
}

func TestLines_ReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLine(productLine("p1", "10.00", 1, 5)))

	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, c.Lines()[0].Quantity)
}
