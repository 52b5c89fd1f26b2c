package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"refurbot/core/dispatch"
	"refurbot/core/store"
)

type dispatchCall struct {
	senderID string
	text     string
}

type fakeDispatcher struct {
	calls   []dispatchCall
	sendErr error
}

func (f *fakeDispatcher) Handle(_ context.Context, senderID, text string) dispatch.Result {
	f.calls = append(f.calls, dispatchCall{senderID: senderID, text: text})
	return dispatch.Result{Reply: "ok", SendErr: f.sendErr}
}

type fakeLister struct {
	records []store.Sender
	err     error
}

func (f *fakeLister) ListAll(_ context.Context) ([]store.Sender, error) {
	return f.records, f.err
}

func newTestServer(d *fakeDispatcher, l *fakeLister) *Server {
	if d == nil {
		d = &fakeDispatcher{}
	}
	if l == nil {
		l = &fakeLister{}
	}
	return NewServer(Options{
		VerifyToken:        "refurbyte_verify",
		RateLimitPerMinute: 100,
		Dispatcher:         d,
		Senders:            l,
	})
}

const textEnvelope = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "biz-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"messages": [
					{"from": "15551230000", "id": "wamid.1", "type": "text", "text": {"body": "menu"}},
					{"from": "15559870000", "id": "wamid.2", "type": "text", "text": {"body": "2"}}
				]
			}
		}]
	}]
}`

func TestVerifyHandshakeEchoesChallenge(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=refurbyte_verify&hub.challenge=4815162342", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "4815162342", rec.Body.String())
}

func TestVerifyHandshakeRejectsBadToken(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=4815162342", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "4815162342")
}

func TestVerifyHandshakeRejectsMissingMode(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.verify_token=refurbyte_verify&hub.challenge=1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventIntakeDispatchesEachTextMessage(t *testing.T) {
	d := &fakeDispatcher{}
	srv := newTestServer(d, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textEnvelope))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []dispatchCall{
		{senderID: "15551230000", text: "menu"},
		{senderID: "15559870000", text: "2"},
	}, d.calls)
}

func TestEventIntakeAcksEnvelopeWithoutTexts(t *testing.T) {
	d := &fakeDispatcher{}
	srv := newTestServer(d, nil)

	body := `{"object": "whatsapp_business_account", "entry": [{"changes": [{"value": {"statuses": [{}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, d.calls)
}

func TestEventIntakeRejectsNonPlatformPayload(t *testing.T) {
	d := &fakeDispatcher{}
	srv := newTestServer(d, nil)

	for _, body := range []string{`{"foo": "bar"}`, `not json at all`} {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code, "payload %q", body)
	}
	require.Empty(t, d.calls)
}

func TestEventIntakeAcksEvenWhenSendFails(t *testing.T) {
	d := &fakeDispatcher{sendErr: errors.New("graph api down")}
	srv := newTestServer(d, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textEnvelope))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "delivery must be acked so the platform does not redeliver")
	require.Len(t, d.calls, 2)
}

func TestDashboardListsSenders(t *testing.T) {
	svc := "PC Repairs & Diagnostics"
	l := &fakeLister{records: []store.Sender{
		{ID: "15551230000", LastMessage: "2", LastService: &svc, LastInteraction: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "15559870000", LastMessage: "hi", LastInteraction: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
	}}
	srv := newTestServer(nil, l)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/senders", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"id":"15551230000"`)
	require.Contains(t, rec.Body.String(), `"last_service":"PC Repairs & Diagnostics"`)
	require.NotContains(t, rec.Body.String(), `&`, "ampersands must not be HTML-escaped")
}

func TestDashboardDegradesToEmptyList(t *testing.T) {
	l := &fakeLister{err: errors.New("database locked")}
	srv := newTestServer(nil, l)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/senders", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Refurbyte")
}
