// Package web is the webhook HTTP surface: the Meta verification
// handshake, event intake, liveness probes, and the senders dashboard.
// The conversational core is reached only through the injected
// interfaces; nothing in here touches the store or the platform client
// directly.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	coreconfig "refurbot/core/config"
	"refurbot/core/dispatch"
	"refurbot/core/logger"
	"refurbot/core/store"
	"refurbot/core/whatsapp"

	"log/slog"
)

const component = "web"

// MessageHandler processes one inbound text message to completion.
type MessageHandler interface {
	Handle(ctx context.Context, senderID, text string) dispatch.Result
}

// SenderLister is the read surface backing the dashboard endpoint.
type SenderLister interface {
	ListAll(ctx context.Context) ([]store.Sender, error)
}

// Options wire the server to its collaborators.
type Options struct {
	VerifyToken        string
	RateLimitPerMinute int

	Dispatcher MessageHandler
	Senders    SenderLister
}

// Server serves the webhook routes.
type Server struct {
	opts    Options
	handler http.Handler
}

// NewServer builds the route table and middleware chain.
func NewServer(opts Options) *Server {
	s := &Server{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /dashboard/senders", s.handleSenders)

	webhook := http.NewServeMux()
	webhook.HandleFunc("GET /webhook", s.handleVerify)
	webhook.HandleFunc("POST /webhook", s.handleEvent)
	mux.Handle("/webhook", RateLimit(opts.RateLimitPerMinute)(webhook))

	s.handler = Recover(RequestLog(mux))
	return s
}

// Handler exposes the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context, cfg coreconfig.ServerConfig) error {
	addr := fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info(ctx, component, "web.listen",
		slog.String("status", "ok"),
		slog.String("listen", addr),
		slog.Int("port", cfg.Port),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("web: server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	logger.Info(context.Background(), component, "web.stop", slog.String("status", "ok"))
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Refurbyte WhatsApp bot is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// handleVerify answers the Meta subscription handshake. The challenge
// is echoed back verbatim only when mode and token both match.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == s.opts.VerifyToken {
		logger.Info(r.Context(), component, "web.verify",
			slog.String("status", "ok"),
		)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	logger.Warn(r.Context(), component, "web.verify",
		slog.String("status", "fail"),
		slog.String("cause", "token mismatch"),
	)
	w.WriteHeader(http.StatusForbidden)
}

// handleEvent decodes the delivery envelope and processes every text
// message it carries before acknowledging. Payloads that are not from
// the platform get 404, mirroring the subscription contract; envelopes
// with no dispatchable messages (statuses, media) are acknowledged and
// dropped.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event whatsapp.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.Object == "" {
		logger.Warn(ctx, component, "web.event",
			slog.String("status", "fail"),
			slog.String("cause", "not a platform payload"),
		)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	texts := event.TextMessages()
	for _, msg := range texts {
		msgCtx := logger.WithSenderID(ctx, msg.SenderID)
		res := s.opts.Dispatcher.Handle(msgCtx, msg.SenderID, msg.Body)
		if !res.Sent() {
			logger.Warn(msgCtx, component, "web.event",
				slog.String("status", "fail"),
				slog.String("sender_id", msg.SenderID),
				slog.String("cause", "send failed"),
				slog.String("err", res.SendErr.Error()),
			)
		}
	}

	if len(texts) > 0 && logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "web.event",
			slog.String("status", "ok"),
			slog.Int("messages", len(texts)),
		)
	}
	w.WriteHeader(http.StatusOK)
}

// handleSenders lists sender records for the dashboard. Store trouble
// degrades to an empty list; the dashboard is never a hard dependency
// on store health.
func (s *Server) handleSenders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := s.opts.Senders.ListAll(ctx)
	if err != nil {
		logger.Error(ctx, component, "web.dashboard",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		records = []store.Sender{}
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	// service titles contain "&"; keep them readable, this is not HTML
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		logger.Error(ctx, component, "web.dashboard",
			slog.String("status", "fail"),
			slog.String("cause", "encode"),
			slog.String("err", err.Error()),
		)
	}
}
