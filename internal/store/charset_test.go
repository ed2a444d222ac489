package store

import (
	"testing"

	"golang.org/x/text/encoding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	shiftJIS, err := LookupCharset("shift_jis")
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		fallback encoding.Encoding
		want     string
		charset  string
	}{
		{"utf8", []byte("café"), nil, "café", "utf-8"},
		{"utf8 bom", []byte("\xEF\xBB\xBFcafé"), nil, "café", "utf-8"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, nil, "hi", "utf-16le"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, nil, "hi", "utf-16be"},
		{"utf16le bare", []byte{'h', 0, 'i', 0, 0xE9, 0}, nil, "hié", "utf-16le"},
		{"windows-1252", []byte("caf\xe9 \x80"), nil, "café €", "windows-1252"},
		{"configured", []byte{0x82, 0xA0}, shiftJIS, "あ", "shift_jis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, charset := decodeText(tt.data, tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.charset, charset)
		})
	}
}
