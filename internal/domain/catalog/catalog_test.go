package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHomeSpec() HomeSpec {
	return HomeSpec{
		ModelName:   "The Pecan",
		SectionType: SectionDouble,
		Bedrooms:    3,
		Bathrooms:   decimal.RequireFromString("2"),
		SquareFeet:  1456,
		LengthFt:    56,
		WidthFt:     28,
		BasePrice:   decimal.RequireFromString("84500.004"),
	}
}

func TestNewMobileHome(t *testing.T) {
	t.Run("creates active home with rounded price", func(t *testing.T) {
		h, err := NewMobileHome(validHomeSpec())
		require.NoError(t, err)
		assert.True(t, h.Active)
		assert.Equal(t, "84500", h.BasePrice.String())
		assert.Equal(t, SectionDouble, h.SectionType)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		spec := validHomeSpec()
		spec.BasePrice = decimal.NewFromInt(-1)
		_, err := NewMobileHome(spec)
		assert.ErrorContains(t, err, "Price cannot be negative")
	})

	t.Run("rejects empty model name", func(t *testing.T) {
		spec := validHomeSpec()
		spec.ModelName = " "
		_, err := NewMobileHome(spec)
		assert.ErrorContains(t, err, "Model name cannot be empty")
	})

	t.Run("rejects unknown section type", func(t *testing.T) {
		spec := validHomeSpec()
		spec.SectionType = "quad"
		_, err := NewMobileHome(spec)
		assert.Error(t, err)
	})
}

func TestMobileHome_UpdateAndDeactivate(t *testing.T) {
	h, err := NewMobileHome(validHomeSpec())
	require.NoError(t, err)
	v := h.Version

	spec := validHomeSpec()
	spec.BasePrice = decimal.NewFromInt(90000)
	require.NoError(t, h.Update(spec))
	assert.True(t, h.BasePrice.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, v+1, h.Version)

	h.Deactivate()
	assert.False(t, h.Active)
	h.Deactivate()
	assert.Equal(t, v+2, h.Version)
}

func TestHomeOption_IsCompatibleWith(t *testing.T) {
	homeA, homeB := uuid.New(), uuid.New()

	universal, err := NewHomeOption("Porch", OptionExterior, "", decimal.NewFromInt(2500), nil)
	require.NoError(t, err)
	assert.True(t, universal.IsCompatibleWith(homeA))

	restricted, err := NewHomeOption("Fireplace", OptionInterior, "", decimal.NewFromInt(1800), []uuid.UUID{homeA, homeA, uuid.Nil})
	require.NoError(t, err)
	assert.Len(t, restricted.CompatibleHomeIDs, 1)
	assert.True(t, restricted.IsCompatibleWith(homeA))
	assert.False(t, restricted.IsCompatibleWith(homeB))

	_, err = NewHomeOption("X", "garage", "", decimal.Zero, nil)
	assert.Error(t, err)
}

func TestNewServiceOffering(t *testing.T) {
	s, err := NewServiceOffering("Site prep", ServiceFoundation, "Pad and piers", decimal.RequireFromString("3200.50"))
	require.NoError(t, err)
	assert.Equal(t, ServiceFoundation, s.Category)

	s.SetActive(false)
	assert.False(t, s.Active)

	_, err = NewServiceOffering("", ServiceSetup, "", decimal.Zero)
	assert.Error(t, err)
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(FactorySpec{
		Name:         "Clayton Plant 3",
		Address:      "100 Industrial Rd, Bonham TX",
		Location:     shared.GeoPoint{Lat: 33.58, Lng: -96.18},
		ContactEmail: "Plant3@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "plant3@example.com", f.ContactEmail)

	_, err = NewFactory(FactorySpec{Name: "X", Address: "Y", Location: shared.GeoPoint{Lat: 120}})
	assert.Error(t, err)
}
