package store

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const charsetSample = 8192

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DefaultFallbackCharset decodes documents that are neither UTF-8 nor
// UTF-16. It maps every byte, so decoding never fails.
var DefaultFallbackCharset encoding.Encoding = charmap.Windows1252

// LookupCharset resolves a WHATWG charset label such as "shift_jis" or
// "latin1".
func LookupCharset(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	return enc, nil
}

// decodeText converts a spec document to UTF-8 and reports the charset it
// was read as. A BOM decides the charset; otherwise valid UTF-8 is kept,
// BOM-less UTF-16 is recognised by its NUL bytes and anything else goes
// through fallback.
func decodeText(data []byte, fallback encoding.Encoding) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(bytes.ToValidUTF8(data[len(bomUTF8):], []byte("�"))), "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)), "utf-16be"
	}

	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	sample := data
	if len(sample) > charsetSample {
		sample = sample[:charsetSample]
	}
	if looksUTF16(sample, 1) {
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)), "utf-16le"
	}
	if looksUTF16(sample, 0) {
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)), "utf-16be"
	}

	if fallback == nil {
		fallback = DefaultFallbackCharset
	}
	name, err := htmlindex.Name(fallback)
	if err != nil {
		name = "fallback"
	}
	return decodeWith(data, fallback), name
}

// looksUTF16 reports whether most code units have a NUL byte at offset,
// which is how mostly-ASCII UTF-16 text looks without a BOM.
func looksUTF16(data []byte, offset int) bool {
	if len(data) < 2 || len(data)%2 != 0 {
		return false
	}
	nul := 0
	for i := offset; i < len(data); i += 2 {
		if data[i] == 0 {
			nul++
		}
	}
	return float64(nul)/float64(len(data)/2) > 0.75
}

func decodeWith(data []byte, enc encoding.Encoding) string {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return string(bytes.ToValidUTF8(out, []byte("�")))
}
