package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateSecureOTP()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestGenerateSecureID(t *testing.T) {
	id := GenerateSecureID("REQ")
	assert.True(t, strings.HasPrefix(id, "REQ"))
	assert.NotEqual(t, id, GenerateSecureID("REQ"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Grand Hotel", "grand-hotel"},
		{"  The  Seaside -- Inn! ", "the-seaside-inn"},
		{"Hôtel Le Grand", "h-tel-le-grand"},
		{"123", "123"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	long := Slugify(strings.Repeat("a", 60))
	assert.Len(t, long, 50)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "front@hotel.com", NormalizeEmail("  Front@Hotel.COM "))
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", NormalizePhone("555.123.4567"))
}
