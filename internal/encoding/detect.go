// Package encoding turns seed files exported by other systems into UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSize = 4096

// Fallback is used when nothing better can be determined.
const Fallback = "windows-1252"

var boms = []struct {
	prefix  []byte
	charset string
	dec     encoding.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8", nil},
	{[]byte{0xFF, 0xFE}, "UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{[]byte{0xFE, 0xFF}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
}

// decoders maps chardet charset names to decoders. UTF-8 needs none.
var decoders = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
	"ISO-8859-15":  charmap.ISO8859_15,
	"UTF-16LE":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"UTF-16BE":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Decoded is a UTF-8 view of the input and the charset it was read as.
type Decoded struct {
	io.Reader
	Charset string
}

// Detect sniffs the start of r. A byte order mark wins, then valid UTF-8,
// then the chardet guess, then Fallback.
func Detect(r io.Reader) (*Decoded, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(head, b.prefix) {
			continue
		}

		if b.dec == nil {
			_, _ = br.Discard(len(b.prefix))
			return &Decoded{Reader: br, Charset: b.charset}, nil
		}

		return &Decoded{Reader: transform.NewReader(br, b.dec.NewDecoder()), Charset: b.charset}, nil
	}

	if utf8.Valid(head) {
		return &Decoded{Reader: br, Charset: "UTF-8"}, nil
	}

	charset := Fallback

	if best, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if best.Charset == "UTF-8" {
			return &Decoded{Reader: br, Charset: "UTF-8"}, nil
		}

		if _, ok := decoders[best.Charset]; ok {
			charset = best.Charset
		}
	}

	return &Decoded{Reader: transform.NewReader(br, decoders[charset].NewDecoder()), Charset: charset}, nil
}
