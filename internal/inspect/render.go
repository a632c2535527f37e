package inspect

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"
)

// BodyKind says how a body is displayed.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyJSON
	BodyText
	BodyBinary
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	case BodyBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// RenderedBody is the display form of a request body. It is never used for verification.
type RenderedBody struct {
	Kind BodyKind
	Text string
	Size int

	// MIME is the sniffed content type; empty for an empty body.
	MIME string

	// Fingerprint is "blake3:<hex>" over the raw bytes; empty for an empty body.
	Fingerprint string
}

// RenderBody maps raw body bytes to their display form. It reads body and never modifies it.
func RenderBody(body []byte) RenderedBody {
	if len(body) == 0 {
		return RenderedBody{Kind: BodyEmpty, Text: "<Empty Body>"}
	}

	rb := RenderedBody{
		Size:        len(body),
		MIME:        mimetype.Detect(body).String(),
		Fingerprint: fingerprint(body),
	}

	// JSON text is UTF-8 by definition, so invalid UTF-8 is binary whatever its shape.
	if !utf8.Valid(body) {
		rb.Kind = BodyBinary
		rb.Text = fmt.Sprintf("<Binary Data: %d bytes>", len(body))
		return rb
	}

	if pretty, ok := prettyJSON(body); ok {
		rb.Kind = BodyJSON
		rb.Text = pretty
		return rb
	}

	rb.Kind = BodyText
	rb.Text = string(body)
	return rb
}

// prettyJSON only accepts strict RFC 8259 documents: no leading zeros, no raw
// control characters inside strings.
func prettyJSON(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return "", false
	}
	var compact, out bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", false
	}
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", false
	}
	return string(bytes.TrimSpace(out.Bytes())), true
}

func fingerprint(body []byte) string {
	sum := blake3.Sum256(body)
	return "blake3:" + hex.EncodeToString(sum[:])
}
