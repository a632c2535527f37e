package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/mattjoyce/hookprobe/internal/inspect"
)

// SignatureHeader carries "<algorithm>=<hex digest>" computed by the sender.
const SignatureHeader = "X-Super-Signature"

// ErrEmptySecret is returned by NewVerifier when the key is unusable.
var ErrEmptySecret = errors.New("hmac secret must not be empty")

// Outcome classifies one signature check.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomePassed
	OutcomeFailedMismatch
	OutcomeFailedMalformedHeader
	OutcomeFailedUndecodableHeader
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomePassed:
		return "passed"
	case OutcomeFailedMismatch:
		return "failed_mismatch"
	case OutcomeFailedMalformedHeader:
		return "failed_malformed_header"
	case OutcomeFailedUndecodableHeader:
		return "failed_undecodable_header"
	default:
		return "unknown"
	}
}

// StatusCode maps the outcome to the HTTP status returned to the sender.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSkipped, OutcomePassed:
		return http.StatusOK
	case OutcomeFailedMismatch:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// Message is the operator-facing explanation shown in reports.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSkipped:
		return SignatureHeader + " header is missing, skip verification."
	case OutcomePassed:
		return "Signature verified successfully."
	case OutcomeFailedMismatch:
		return "Invalid signature!"
	case OutcomeFailedMalformedHeader:
		return "Malformed signature header format."
	case OutcomeFailedUndecodableHeader:
		return "Invalid signature header encoding."
	default:
		return ""
	}
}

// Verification is the result of checking one request.
type Verification struct {
	Outcome Outcome

	// Present reports whether the signature header was sent at all.
	Present bool

	// Algorithm and Provided are the two halves of the header; Provided holds
	// the whole raw value when it could not be split.
	Algorithm string
	Provided  string

	// Expected is the lowercase hex HMAC-SHA256 of the raw body.
	Expected string
}

// Verifier checks HMAC-SHA256 signatures with one shared secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier keyed with secret. The bytes are copied.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: append([]byte(nil), secret...)}, nil
}

// Secret returns the key as text, for display.
func (v *Verifier) Secret() string {
	return string(v.secret)
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature header of snap against its raw body.
//
// The header is optional: without it the outcome is OutcomeSkipped. The value
// is split on the first '=' and the algorithm tag is not checked. Digests are
// compared as received, in constant time.
func (v *Verifier) Verify(snap inspect.Snapshot) Verification {
	result := Verification{Expected: v.Sign(snap.Body)}

	value, ok := snap.Lookup(SignatureHeader)
	if !ok {
		result.Outcome = OutcomeSkipped
		return result
	}
	result.Present = true

	if !isHeaderText(value) {
		result.Provided = value
		result.Outcome = OutcomeFailedUndecodableHeader
		return result
	}

	algorithm, digest, found := strings.Cut(value, "=")
	if !found {
		result.Provided = value
		result.Outcome = OutcomeFailedMalformedHeader
		return result
	}
	result.Algorithm = algorithm
	result.Provided = digest

	if subtle.ConstantTimeCompare([]byte(digest), []byte(result.Expected)) != 1 {
		result.Outcome = OutcomeFailedMismatch
		return result
	}

	result.Outcome = OutcomePassed
	return result
}

// isHeaderText reports whether every byte is visible ASCII, space or tab.
func isHeaderText(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
