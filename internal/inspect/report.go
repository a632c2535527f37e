package inspect

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MaxHeaderDisplay caps how many characters of a header value are shown.
	MaxHeaderDisplay = 50
	ellipsis         = "..."

	heavyRule = "========================================================"
	lightRule = "--------------------------------------------------------"
)

// Verification is the report's view of the signature check.
type Verification struct {
	Header     string
	Secret     string
	Present    bool
	Algorithm  string
	Provided   string
	Calculated string
	Outcome    string
	Message    string
}

// Report is everything shown to the operator for one delivery.
type Report struct {
	DeliveryID   string
	ReceivedAt   time.Time
	Request      Snapshot
	Body         RenderedBody
	Verification Verification
	Status       int
}

// BannerEntry is one "label: value" line of the startup banner.
type BannerEntry struct {
	Label string
	Value string
}

// Reporter renders reports and writes each one to its output in a single write.
// It is safe for concurrent use; reports never interleave.
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	theme Theme
}

// NewReporter returns a Reporter writing to out. color is one of auto, always or never.
func NewReporter(out io.Writer, color string) *Reporter {
	return &Reporter{
		out:   out,
		theme: NewTheme(out, color),
	}
}

// Emit renders the report in full and then writes it.
func (r *Reporter) Emit(report Report) error {
	return r.write(r.Render(report))
}

// Banner writes the startup banner.
func (r *Reporter) Banner(entries []BannerEntry) error {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Label))
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", r.theme.Rule.Render(lightRule))
	for _, e := range entries {
		fmt.Fprintf(&out, "%s %s%s\n", r.theme.Label.Render(e.Label+":"), strings.Repeat(" ", width-len(e.Label)+2), e.Value)
	}
	fmt.Fprintf(&out, "%s\n", r.theme.Rule.Render(lightRule))
	return r.write(out.String())
}

func (r *Reporter) write(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, s); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Render builds the terminal-friendly text of a report.
func (r *Reporter) Render(report Report) string {
	t := r.theme
	req := report.Request

	var out strings.Builder
	fmt.Fprintf(&out, "\n%s\n", t.Rule.Render(heavyRule))
	fmt.Fprintf(&out, "%s %s %s\n", t.Title.Render("Request:"), req.Method, displayValue(req.Target()))
	fmt.Fprintf(&out, "%s\n", t.Rule.Render(heavyRule))
	fmt.Fprintf(&out, "%s %s\n", t.Label.Render("Delivery    :"), report.DeliveryID)
	fmt.Fprintf(&out, "%s %s\n", t.Label.Render("Received At :"), report.ReceivedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&out, "%s %s\n", t.Label.Render("Remote Addr :"), renderUnset(req.RemoteAddr, "<unknown>"))

	fmt.Fprintf(&out, "\n%s\n", t.Section.Render("[Headers]:"))
	if len(req.Headers) == 0 {
		fmt.Fprintf(&out, "  %s\n", t.Dim.Render("<none>"))
	}
	for _, h := range req.Headers {
		fmt.Fprintf(&out, "  %s: %s\n", h.Name, displayValue(truncate(h.Value, MaxHeaderDisplay)))
	}

	body := report.Body
	fmt.Fprintf(&out, "\n%s %s\n", t.Section.Render("[Body]:"), t.Dim.Render(bodySummary(body)))
	for _, line := range bodyLines(body) {
		fmt.Fprintf(&out, "  %s\n", line)
	}

	v := report.Verification
	fmt.Fprintf(&out, "\n%s\n", t.Section.Render("[Verification]:"))
	fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Header     :"), v.Header)
	fmt.Fprintf(&out, "  %s '%s'\n", t.Label.Render("Secret     :"), v.Secret)
	if v.Present {
		fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Algorithm  :"), displayValue(renderUnset(v.Algorithm, "<none>")))
		fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Provided   :"), displayValue(renderUnset(v.Provided, "<none>")))
	} else {
		fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Provided   :"), t.Dim.Render("<header missing>"))
	}
	fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Calculated :"), v.Calculated)
	fmt.Fprintf(&out, "  %s %s\n", t.Label.Render("Result     :"), r.resultStyle(report).Render(resultLine(report)))
	fmt.Fprintf(&out, "%s\n", t.Rule.Render(lightRule))

	return out.String()
}

func (r *Reporter) resultStyle(report Report) lipgloss.Style {
	switch {
	case !report.Verification.Present:
		return r.theme.Skipped
	case report.Status >= 400:
		return r.theme.Failed
	default:
		return r.theme.Passed
	}
}

func resultLine(report Report) string {
	line := report.Verification.Outcome
	if report.Verification.Message != "" {
		line += " - " + report.Verification.Message
	}
	return fmt.Sprintf("%s (%d %s)", line, report.Status, http.StatusText(report.Status))
}

func bodySummary(body RenderedBody) string {
	if body.Kind == BodyEmpty {
		return body.Kind.String()
	}
	return fmt.Sprintf("%s, %d bytes, %s, %s", body.Kind, body.Size, body.MIME, body.Fingerprint)
}

// bodyLines splits the display text so every line can share one indent.
func bodyLines(body RenderedBody) []string {
	switch body.Kind {
	case BodyJSON, BodyText:
		lines := strings.Split(body.Text, "\n")
		for i, line := range lines {
			lines[i] = sanitizeLine(strings.TrimSuffix(line, "\r"))
		}
		return lines
	default:
		return []string{body.Text}
	}
}

// truncate shortens v to limit characters plus an ellipsis. Invalid UTF-8 bytes count as one character each.
func truncate(v string, limit int) string {
	n := 0
	for i := range v {
		if n == limit {
			return v[:i] + ellipsis
		}
		n++
	}
	return v
}

// displayValue quotes values that are not plain printable text so they cannot
// corrupt the terminal.
func displayValue(v string) string {
	if !utf8.ValidString(v) {
		return strconv.Quote(v)
	}
	for _, c := range v {
		if c != '\t' && !unicode.IsPrint(c) {
			return strconv.Quote(v)
		}
	}
	return v
}

// sanitizeLine escapes control characters inside a body line, keeping tabs.
func sanitizeLine(line string) string {
	clean := true
	for _, c := range line {
		if c != '\t' && unicode.IsControl(c) {
			clean = false
			break
		}
	}
	if clean {
		return line
	}

	var b strings.Builder
	for _, c := range line {
		if c != '\t' && unicode.IsControl(c) {
			fmt.Fprintf(&b, "\\x%02x", c)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func renderUnset(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
