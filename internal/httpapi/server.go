// Package httpapi exposes read-only portfolio and trade-log endpoints plus a
// WebSocket stream of engine events. It has no mutation entry point: the only
// way state changes is through the engine's own pipeline.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/store"
)

// PortfolioSource is the read-only view the server renders. *engine.Engine
// satisfies it.
type PortfolioSource interface {
	Portfolio() domain.Portfolio
	LastPrices() map[string]float64
	Halted() bool
}

// Server serves the dashboard API.
type Server struct {
	source PortfolioSource
	fills  store.FillStore // optional
	hub    *Hub            // optional
	log    *slog.Logger
}

// NewServer creates a Server over the given portfolio source. fills and hub
// may be nil; the corresponding endpoints then report empty data.
func NewServer(source PortfolioSource, fills store.FillStore, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		source: source,
		fills:  fills,
		hub:    hub,
		log:    log.With("component", "httpapi"),
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/fills", s.handleFills)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.ServeWS)
	}
	return corsMiddleware(mux)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	pf := s.source.Portfolio()
	prices := s.source.LastPrices()

	views := make([]PositionView, 0, len(pf.Positions))
	unrealized := 0.0
	for id, pos := range pf.Positions {
		price, ok := prices[id]
		if !ok {
			price = pos.AverageCost
		}
		views = append(views, PositionView{
			InstrumentID: id,
			Quantity:     pos.Quantity,
			AverageCost:  pos.AverageCost,
			MarketValue:  pos.MarketValue(price),
		})
		unrealized += float64(pos.Quantity) * (price - pos.AverageCost)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].InstrumentID < views[j].InstrumentID })

	writeJSON(w, PortfolioResponse{
		Cash:          pf.Cash,
		Positions:     views,
		RealizedPnL:   pf.RealizedPnL,
		UnrealizedPnL: unrealized,
		Equity:        pf.Equity(prices),
		Prices:        prices,
		AsOf:          time.Now().UTC(),
	})
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	resp := FillsResponse{Fills: []domain.Fill{}}
	if s.fills != nil {
		fills, err := s.fills.ListFills(r.Context())
		if err != nil {
			s.log.Error("listing fills", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if fills != nil {
			resp.Fills = fills
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	halted := s.source.Halted()
	status := "ok"
	if halted {
		status = "halted"
	}
	writeJSON(w, StatusResponse{Status: status, Halted: halted})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}
