package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPublicID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"versioned", "https://res.cloudinary.com/demo/image/upload/v1712345678/pickup-proofs/abc123.jpg", "pickup-proofs/abc123"},
		{"unversioned", "https://res.cloudinary.com/demo/image/upload/donations/rice.png", "donations/rice"},
		{"no folder", "https://res.cloudinary.com/demo/image/upload/v1/plain.webp", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractPublicID(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPublicID_NotCloudinary(t *testing.T) {
	_, err := extractPublicID("https://example.com/images/a.jpg")
	assert.Error(t, err)
}
