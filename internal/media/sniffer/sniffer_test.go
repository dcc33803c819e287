package sniffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want MediaType
		ext  string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, TypeJPEG, "jpg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, TypePNG, "png"},
		{"gif87", []byte("GIF87a......"), TypeGIF, "gif"},
		{"gif89", []byte("GIF89a......"), TypeGIF, "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP, "webp"},
		{"svg", []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), TypeSVG, "svg"},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?><SVG></SVG>"), TypeSVG, "svg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Sniff(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Type)
			assert.Equal(t, tc.ext, res.Ext)
		})
	}
}

func TestSniff_Unsupported(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":       nil,
		"text":        []byte("plain text"),
		"xml not svg": []byte("<?xml version=\"1.0\"?><html></html>"),
		"avif":        []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"),
		"riff wave":   []byte("RIFF\x00\x00\x00\x00WAVEfmt "),
		"short jpeg":  {0xff, 0xd8},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Sniff(data)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestSniff_OnlyLooksAtHead(t *testing.T) {
	data := append(bytes.Repeat([]byte(" "), HeadSize), []byte("<svg></svg>")...)
	_, err := Sniff(data)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestAccepts(t *testing.T) {
	png := Result{Type: TypePNG, MIME: "image/png", Ext: "png"}
	assert.True(t, png.Accepts(""))
	assert.True(t, png.Accepts("application/octet-stream"))
	assert.True(t, png.Accepts(" Image/PNG; charset=binary"))
	assert.False(t, png.Accepts("image/jpeg"))
	assert.Equal(t, "", NormalizeMIME(""))
}
