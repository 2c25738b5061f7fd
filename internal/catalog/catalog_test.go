package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_Validate(t *testing.T) {
	valid := Product{Name: "Bol en grès", Price: decimal.RequireFromString("25.00"), Stock: 10}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = "   "
	assert.ErrorIs(t, noName.Validate(), ErrInvalidName)

	freePrice := valid
	freePrice.Price = decimal.Zero
	assert.ErrorIs(t, freePrice.Validate(), ErrInvalidPrice)

	negPrice := valid
	negPrice.Price = decimal.RequireFromString("-1")
	assert.ErrorIs(t, negPrice.Validate(), ErrInvalidPrice)

	negStock := valid
	negStock.Stock = -1
	assert.ErrorIs(t, negStock.Validate(), ErrInvalidStock)

	zeroStock := valid
	zeroStock.Stock = 0
	assert.NoError(t, zeroStock.Validate())
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Bol en grès":        "bol-en-grs",
		"  Vase émaillé  ":   "vase-maill",
		"Assiette - Plate":   "assiette-plate",
		"Tasse_Café No 2":    "tasse-caf-no-2",
		"---":                "",
		"Déjà  double space": "dj-double-space",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}
