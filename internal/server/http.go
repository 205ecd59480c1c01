package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/biz/domain"
)

// emptyTwiML acknowledges a Twilio webhook without sending a synchronous reply
const emptyTwiML = "<Response></Response>"

// InboundSubmitter accepts chat messages for background processing
type InboundSubmitter interface {
	Submit(from, body string)
}

// HTTPServer receives WhatsApp webhooks and serves the household API
type HTTPServer struct {
	pipeline InboundSubmitter
	logger   *zap.Logger
	mux      *http.ServeMux
	server   *http.Server
}

// NewHTTPServer creates a new HTTP server. apiHandler may be nil.
func NewHTTPServer(addr string, pipeline InboundSubmitter, apiHandler *api.Handler, logger *zap.Logger) *HTTPServer {
	s := &HTTPServer{
		pipeline: pipeline,
		logger:   logger.Named("http"),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /webhook/whatsapp", s.handleWhatsApp)
	if apiHandler != nil {
		apiHandler.Register(s.mux)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ServeHTTP delegates to the internal mux
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start serves until Stop is called
func (s *HTTPServer) Start() error {
	s.logger.Info("listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWhatsApp accepts Twilio form posts. From and Body may also arrive as query parameters.
func (s *HTTPServer) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	msg := domain.InboundMessage{
		From: r.Form.Get("From"),
		Body: r.Form.Get("Body"),
	}
	if !msg.Valid() {
		http.Error(w, "From and Body are required", http.StatusBadRequest)
		return
	}

	s.logger.Info("inbound message", zap.String("from", msg.From), zap.Int("len", len(msg.Body)))
	s.pipeline.Submit(msg.From, msg.Body)

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(emptyTwiML))
}
