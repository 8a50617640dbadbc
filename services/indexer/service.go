// Package indexer projects launchpad events into queryable read models
// and serves them over HTTP and WebSocket.
package indexer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/launchpad"
)

// ReadModel folds events into a query projection.
type ReadModel interface {
	HandleEvent(ev launchpad.Event) error
}

// Config wires a Service.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string
	// AssetDecimals is the reserve asset's display precision.
	AssetDecimals uint8
	Logger        *zap.Logger
}

// Service consumes a launchpad event stream, updates its read models
// and broadcasts every event to WebSocket subscribers.
type Service struct {
	mu      sync.RWMutex
	readers []ReadModel
	markets *MarketReadModel
	hub     *Hub
	server  *Server
	log     *zap.Logger
}

func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		markets: NewMarketReadModel(cfg.AssetDecimals),
		hub:     NewHub(log),
		log:     log,
	}
	s.readers = []ReadModel{s.markets}
	s.server = NewServer(s, cfg.Addr)
	return s
}

// AddReader registers an additional read model.
func (s *Service) AddReader(r ReadModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers = append(s.readers, r)
}

// MarketReader is the default market projection.
func (s *Service) MarketReader() *MarketReadModel { return s.markets }

// Handler exposes the HTTP API without binding a listener.
func (s *Service) Handler() http.Handler { return s.server.Handler() }

// Apply dispatches one event to every read model and the WebSocket
// feed. A reader error is logged, not fatal: one bad projection must
// not stall the others.
func (s *Service) Apply(ev launchpad.Event) {
	s.mu.RLock()
	readers := s.readers
	s.mu.RUnlock()

	for _, r := range readers {
		if err := r.HandleEvent(ev); err != nil {
			s.log.Warn("read model rejected event",
				zap.String("type", string(ev.Type)),
				zap.String("market", ev.Market),
				zap.Error(err),
			)
		}
	}
	s.hub.Broadcast(ev)
}

// Run serves the HTTP API and consumes events until the stream closes
// or ctx is cancelled.
func (s *Service) Run(ctx context.Context, events <-chan launchpad.Event) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("indexer listening", zap.String("addr", s.server.Addr()))
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Stop(shutdownCtx); err != nil {
			s.log.Warn("server shutdown", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Apply(ev)
		}
	}
}
