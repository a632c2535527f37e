package webhook

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hookprobe/internal/inspect"
	"github.com/mattjoyce/hookprobe/internal/log"
	"github.com/mattjoyce/hookprobe/internal/webhook/mocks"
)

var fixedTime = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, sink ReportSink, maxBodySize int64) *Handler {
	t.Helper()
	h := NewHandler(mustVerifier(t, "sk_test"), sink, maxBodySize, log.Discard())
	h.now = func() time.Time { return fixedTime }
	h.newID = func() string { return "delivery-1" }
	return h
}

func TestInspect(t *testing.T) {
	v := mustVerifier(t, "sk_test")
	body := []byte(`{"a":1}`)
	snap := snapshotWith(body, formatSignature(referenceSignature("sk_test", body)))

	status, report := Inspect(v, snap, "delivery-1", fixedTime)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, report.Status)
	assert.Equal(t, "delivery-1", report.DeliveryID)
	assert.Equal(t, fixedTime, report.ReceivedAt)
	assert.Equal(t, inspect.BodyJSON, report.Body.Kind)
	assert.Equal(t, "passed", report.Verification.Outcome)
	assert.Equal(t, "sk_test", report.Verification.Secret)
	assert.Equal(t, SignatureHeader, report.Verification.Header)
	assert.Equal(t, "sha256", report.Verification.Algorithm)
	assert.Equal(t, report.Verification.Provided, report.Verification.Calculated)
	assert.True(t, report.Verification.Present)

	// Same input, same result.
	status2, report2 := Inspect(v, snap, "delivery-1", fixedTime)
	assert.Equal(t, status, status2)
	assert.Equal(t, report, report2)
}

func TestInspectVerifiesRawBytesNotRenderedBody(t *testing.T) {
	v := mustVerifier(t, "sk_test")
	raw := []byte("{ \"a\" :\n 1 }")
	pretty := []byte("{\n  \"a\": 1\n}")

	// Signed over the pretty form: must fail against the raw bytes.
	snap := snapshotWith(raw, formatSignature(referenceSignature("sk_test", pretty)))
	status, report := Inspect(v, snap, "id", fixedTime)

	assert.Equal(t, string(pretty), report.Body.Text)
	assert.Equal(t, http.StatusUnauthorized, status)

	snap = snapshotWith(raw, formatSignature(referenceSignature("sk_test", raw)))
	status, _ = Inspect(v, snap, "id", fixedTime)
	assert.Equal(t, http.StatusOK, status)
}

func TestInspectBinaryBody(t *testing.T) {
	v := mustVerifier(t, "sk_test")
	body := []byte{0xff, 0xfe, 0x00}

	status, report := Inspect(v, snapshotWith(body), "id", fixedTime)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, inspect.BodyBinary, report.Body.Kind)
	assert.Equal(t, 3, report.Body.Size)
	assert.Equal(t, "skipped", report.Verification.Outcome)
	assert.False(t, report.Verification.Present)
	assert.Equal(t, referenceSignature("sk_test", body), report.Verification.Calculated)
}

func TestServeHTTPEmitsOneReport(t *testing.T) {
	tests := []struct {
		name        string
		signature   string
		wantStatus  int
		wantOutcome string
	}{
		{
			name:        "valid signature",
			signature:   formatSignature(referenceSignature("sk_test", []byte(`{"a":1}`))),
			wantStatus:  http.StatusOK,
			wantOutcome: "passed",
		},
		{
			name:        "altered signature",
			signature:   formatSignature(flipHex(referenceSignature("sk_test", []byte(`{"a":1}`)))),
			wantStatus:  http.StatusUnauthorized,
			wantOutcome: "failed_mismatch",
		},
		{
			name:        "no signature",
			wantStatus:  http.StatusOK,
			wantOutcome: "skipped",
		},
		{
			name:        "malformed signature",
			signature:   "sha256",
			wantStatus:  http.StatusBadRequest,
			wantOutcome: "failed_malformed_header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sink := mocks.NewMockReportSink(ctrl)
			sink.EXPECT().Emit(gomock.Any()).Times(1).DoAndReturn(func(report inspect.Report) error {
				assert.Equal(t, "delivery-1", report.DeliveryID)
				assert.Equal(t, "PUT", report.Request.Method)
				assert.Equal(t, "/any/path", report.Request.Path)
				assert.Equal(t, []byte(`{"a":1}`), report.Request.Body)
				assert.Equal(t, tt.wantOutcome, report.Verification.Outcome)
				assert.Equal(t, tt.wantStatus, report.Status)
				return nil
			})

			h := newTestHandler(t, sink, 1024)
			req := httptest.NewRequest("PUT", "/any/path", strings.NewReader(`{"a":1}`))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "delivery-1", rec.Header().Get(DeliveryHeader))
			assert.Equal(t, tt.wantOutcome, rec.Header().Get(OutcomeHeader))

			var resp InspectResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, InspectResponse{DeliveryID: "delivery-1", Outcome: tt.wantOutcome}, resp)
		})
	}
}

func TestServeHTTPBodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockReportSink(ctrl) // no Emit expected

	h := newTestHandler(t, sink, 8)
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("0123456789")))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "payload too large", resp.Error)
}

func TestServeHTTPBodyAtLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockReportSink(ctrl)
	sink.EXPECT().Emit(gomock.Any()).Return(nil)

	h := newTestHandler(t, sink, 10)
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("0123456789")))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeHTTPSinkErrorStillResponds(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockReportSink(ctrl)
	sink.EXPECT().Emit(gomock.Any()).Return(errors.New("stdout closed"))

	h := newTestHandler(t, sink, 1024)
	req := httptest.NewRequest("POST", "/", strings.NewReader("x"))
	req.Header.Set(SignatureHeader, "sha256=00")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestServeHTTPBodyReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockReportSink(ctrl)

	h := newTestHandler(t, sink, 1024)
	req := httptest.NewRequest("POST", "/", failingReader{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
