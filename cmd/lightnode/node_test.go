package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitReplies(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Status: OK\r\n", []string{"Status: OK\r\n"}},
		{"two", "Status: OK\r\nUnknown Command\r\n", []string{"Status: OK\r\n", "Unknown Command\r\n"}},
		{"partial tail", "Light Value: 3", []string{"Light Value: 3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitReplies([]byte(tt.out)))
		})
	}
}
