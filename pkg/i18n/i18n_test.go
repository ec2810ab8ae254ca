package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestValidate_ReportsMissing(t *testing.T) {
	saved := catalog[AR][KeyOrderPlaced]
	delete(catalog[AR], KeyOrderPlaced)
	t.Cleanup(func() { catalog[AR][KeyOrderPlaced] = saved })

	err := Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ar.order_placed")
}

func TestT(t *testing.T) {
	assert.Equal(t, "Your cart is empty.", T(EN, KeyCartEmpty))
	assert.Equal(t, "سلة التسوق فارغة.", T(AR, KeyCartEmpty))
	assert.Equal(t, T(EN, KeyCartEmpty), T(Locale("fr"), KeyCartEmpty))
	assert.Equal(t, "Key(99)", T(EN, Key(99)))
}

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   Locale
	}{
		{"", EN},
		{"ar", AR},
		{"ar-EG,ar;q=0.9,en;q=0.8", AR},
		{"en-US,en;q=0.9,ar;q=0.8", EN},
		{"fr-FR,ar;q=0.5", AR},
		{"fr, de", EN},
		{"en;q=0.2, ar;q=0.7", AR},
		{"AR_sa", AR},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAcceptLanguage(tt.header))
		})
	}
}
