package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in   string
		want []DBOrdering
	}{
		{"", nil},
		{"email", []DBOrdering{{Field: "email", Ascending: true}}},
		{"-created_at, full_name", []DBOrdering{{Field: "created_at"}, {Field: "full_name", Ascending: true}}},
		{" , -, role", []DBOrdering{{Field: "role", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.in))
		})
	}
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "email ASC", DBOrdering{Field: "email", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}
