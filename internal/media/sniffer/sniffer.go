// Package sniffer classifies avatar uploads by their leading bytes. Only the
// formats an avatar may be stored as are recognised.
package sniffer

import (
	"bytes"
	"errors"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeSVG  MediaType = "svg"
)

// HeadSize is how many leading bytes Sniff inspects.
const HeadSize = 512

var ErrUnsupported = errors.New("unsupported image type")

type Result struct {
	Type MediaType
	MIME string
	// Ext is the extension stored objects of this type get.
	Ext string
}

// Accepts reports whether a client supplied Content-Type agrees with the
// sniffed type. Clients that send nothing or a generic binary type are let
// through.
func (r Result) Accepts(contentType string) bool {
	declared := NormalizeMIME(contentType)
	return declared == "" || declared == "application/octet-stream" || declared == r.MIME
}

type signature struct {
	result Result
	match  func(head []byte) bool
}

var signatures = []signature{
	{Result{TypeJPEG, "image/jpeg", "jpg"}, hasPrefix("\xff\xd8\xff")},
	{Result{TypePNG, "image/png", "png"}, hasPrefix("\x89PNG\r\n\x1a\n")},
	{Result{TypeGIF, "image/gif", "gif"}, hasPrefix("GIF87a", "GIF89a")},
	{Result{TypeWEBP, "image/webp", "webp"}, isWEBP},
	{Result{TypeSVG, "image/svg+xml", "svg"}, isSVG},
}

// Sniff classifies data by its first HeadSize bytes.
func Sniff(data []byte) (Result, error) {
	head := data
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}
	if len(head) == 0 {
		return Result{}, ErrUnsupported
	}
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.result, nil
		}
	}
	return Result{}, ErrUnsupported
}

func hasPrefix(magics ...string) func([]byte) bool {
	return func(head []byte) bool {
		for _, magic := range magics {
			if bytes.HasPrefix(head, []byte(magic)) {
				return true
			}
		}
		return false
	}
}

// RIFF container: "RIFF", 4 byte size, form type.
func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.HasPrefix(head, []byte("RIFF")) && string(head[8:12]) == "WEBP"
}

// An XML prolog alone is not enough; the root must be an svg element.
func isSVG(head []byte) bool {
	text := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(text, "<svg") {
		return true
	}
	return strings.HasPrefix(text, "<?xml") && strings.Contains(text, "<svg")
}

// NormalizeMIME strips parameters from a Content-Type value.
func NormalizeMIME(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
