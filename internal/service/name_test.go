package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveChannelName(t *testing.T) {
	cases := []struct {
		name   string
		handle string
		want   string
	}{
		{"plain handle", "Steve", "ticket-steve"},
		{"discriminator stripped", "Steve#1234", "ticket-steve"},
		{"mixed case and symbols", "A_b-C.9!", "ticket-abc9"},
		{"unicode stripped", "héllo", "ticket-hllo"},
		{"only discriminator", "#1234", "ticket-"},
		{"spaces removed", "cool user", "ticket-cooluser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveChannelName(tc.handle))
		})
	}
}

func TestDeriveChannelName_Deterministic(t *testing.T) {
	first := DeriveChannelName("Steve#1234")
	second := DeriveChannelName("Steve#9999")
	assert.Equal(t, first, second, "same base handle must derive the same name regardless of discriminator")
}
