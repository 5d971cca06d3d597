package validator

import (
	"testing"

	"go-scan-pos/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Barcode  string          `validate:"required,max=8"`
	Quantity int             `validate:"gt=0"`
	Price    decimal.Decimal `validate:"gte=0"`
}

func TestCheck(t *testing.T) {
	ok := sample{Barcode: "A1", Quantity: 1, Price: decimal.NewFromInt(2)}
	require.NoError(t, Check(ok))

	err := Check(sample{Barcode: "", Quantity: 1})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "Barcode")

	err = Check(sample{Barcode: "A1", Quantity: 0})
	assert.Contains(t, err.Error(), "gt=0")

	err = Check(sample{Barcode: "A1", Quantity: 1, Price: decimal.NewFromInt(-1)})
	assert.Contains(t, err.Error(), "Price")
}
