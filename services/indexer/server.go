package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Server is the HTTP face of the indexer.
type Server struct {
	svc  *Service
	http *http.Server
}

func NewServer(svc *Service, addr string) *Server {
	s := &Server{svc: svc}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/markets", s.handleGetMarkets).Methods("GET")
	r.HandleFunc("/api/v1/markets/{symbol}", s.handleGetMarket).Methods("GET")
	r.HandleFunc("/api/v1/markets/{symbol}/trades", s.handleGetTrades).Methods("GET")
	r.HandleFunc("/ws", svc.hub.ServeWS)
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) Addr() string          { return s.http.Addr }
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.markets.Markets())
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToLower(mux.Vars(r)["symbol"])
	m, ok := s.svc.markets.Market(symbol)
	if !ok {
		http.Error(w, "market not found", http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToLower(mux.Vars(r)["symbol"])
	if _, ok := s.svc.markets.Market(symbol); !ok {
		http.Error(w, "market not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s.svc.markets.Trades(symbol))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "healthy",
		"service": "launchpad-indexer",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
