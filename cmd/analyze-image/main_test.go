package main

import (
	"strings"
	"testing"
)

func TestDataURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	tests := []struct {
		name string
		path string
		raw  []byte
		want string
	}{
		{"sniffed png", "ferida.bin", png, "data:image/png;base64,"},
		{"extension", "ferida.webp", []byte("plain"), "data:image/webp;base64,"},
		{"jpg alias", "ferida.JPG", []byte("plain"), "data:image/jpeg;base64,"},
		{"no extension", "ferida", []byte("plain"), "data:image/jpeg;base64,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dataURL(tt.path, tt.raw); !strings.HasPrefix(got, tt.want) {
				t.Fatalf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}
