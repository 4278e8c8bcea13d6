package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/spendsight/internal/encoding"
)

func readAll(t *testing.T, input []byte) (string, string) {
	t.Helper()

	d, err := encoding.Detect(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(d)
	require.NoError(t, err)

	return string(got), d.Charset
}

func TestDetect_UTF8(t *testing.T) {
	input := "account_id,merchant\nA123,Café Nübe\nA123,Crème Brûlée Bar\n"

	got, charset := readAll(t, []byte(input))
	assert.Equal(t, input, got)
	assert.Equal(t, "UTF-8", charset)
}

func TestDetect_UTF8BOMStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("account_id;merchant\n")...)

	got, charset := readAll(t, input)
	assert.Equal(t, "account_id;merchant\n", got)
	assert.Equal(t, "UTF-8", charset)
}

func TestDetect_UTF16LE(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("merchant\nCafé\n"))
	require.NoError(t, err)

	got, charset := readAll(t, encoded)
	assert.Equal(t, "merchant\nCafé\n", got)
	assert.Equal(t, "UTF-16LE", charset)
}

func TestDetect_Latin1(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte("merchant;amount\nCafé Nübe;12,50\n"))
	require.NoError(t, err)

	got, _ := readAll(t, encoded)
	assert.Equal(t, "merchant;amount\nCafé Nübe;12,50\n", got)
}

func TestDetect_Empty(t *testing.T) {
	got, charset := readAll(t, nil)
	assert.Empty(t, got)
	assert.Equal(t, "UTF-8", charset)
}
