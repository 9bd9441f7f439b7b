// Package api exposes the redundancy engine over HTTP: the readable and
// writable policy/status object, the latest health class, manual operation
// triggers, and the inbound PSU state notification endpoint.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/psufleet/coldswap/pkg/redundancy"
)

type Server struct {
	engine *redundancy.Engine
	addr   string
}

func NewServer(engine *redundancy.Engine, addr string) *Server {
	return &Server{engine: engine, addr: addr}
}

// Router builds the route tree. Split from Run so tests can drive the
// handlers without a listener.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/redundancy", s.getRedundancy)
	router.Put("/redundancy", s.putRedundancy)
	router.Post("/redundancy/rotate", s.postRotate)
	router.Post("/redundancy/reconfigure", s.postReconfigure)
	router.Get("/redundancy/health", s.getHealth)
	router.Post("/events/psu", s.postPSUEvent)
	router.Post("/events/inventory", s.postInventoryEvent)

	return router
}

// Run blocks serving the API.
func (s *Server) Run() error {
	err := http.ListenAndServe(s.addr, s.Router())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// policyWire mirrors redundancy.Policy with the rotation period in seconds,
// the unit the platform schema uses.
// RankOrder rides as []int: a []uint8 field would marshal as a base64
// string instead of a JSON array.
type policyWire struct {
	Enabled                 bool   `json:"enabled"`
	RotationEnabled         bool   `json:"rotationEnabled"`
	Algorithm               string `json:"algorithm"`
	PeriodOfRotationSeconds int64  `json:"periodOfRotationSeconds"`
	RankOrder               []int  `json:"rankOrder"`
	RedundantCount          int    `json:"redundantCount"`
}

type redundancyWire struct {
	policyWire
	Status          redundancy.Status        `json:"status"`
	PowerSupplies   []redundancy.PowerSupply `json:"powerSupplies"`
	WritesExhausted uint64                   `json:"writesExhausted"`
}

func toWire(snap redundancy.Snapshot) redundancyWire {
	ranks := make([]int, len(snap.Policy.RankOrder))
	for i, r := range snap.Policy.RankOrder {
		ranks[i] = int(r)
	}
	return redundancyWire{
		policyWire: policyWire{
			Enabled:                 snap.Policy.Enabled,
			RotationEnabled:         snap.Policy.RotationEnabled,
			Algorithm:               string(snap.Policy.Algorithm),
			PeriodOfRotationSeconds: int64(snap.Policy.RotationPeriod / time.Second),
			RankOrder:               ranks,
			RedundantCount:          snap.Policy.RedundantCount,
		},
		Status:          snap.Status,
		PowerSupplies:   snap.PowerSupplies,
		WritesExhausted: snap.WritesExhausted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) getRedundancy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toWire(s.engine.Snapshot()))
}

// policyUpdateWire carries the writable fields; nil means unchanged.
type policyUpdateWire struct {
	Enabled                 *bool   `json:"enabled"`
	RotationEnabled         *bool   `json:"rotationEnabled"`
	Algorithm               *string `json:"algorithm"`
	PeriodOfRotationSeconds *int64  `json:"periodOfRotationSeconds"`
	RankOrder               []int   `json:"rankOrder"`
	RedundantCount          *int    `json:"redundantCount"`
}

func (s *Server) putRedundancy(w http.ResponseWriter, r *http.Request) {
	var wire policyUpdateWire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	upd := redundancy.PolicyUpdate{
		Enabled:         wire.Enabled,
		RotationEnabled: wire.RotationEnabled,
		Algorithm:       wire.Algorithm,
		RedundantCount:  wire.RedundantCount,
	}
	if wire.RankOrder != nil {
		upd.RankOrder = make([]uint8, len(wire.RankOrder))
		for i, r := range wire.RankOrder {
			if r < 0 || r > 255 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rank %d", r))
				return
			}
			upd.RankOrder[i] = uint8(r)
		}
	}
	if wire.PeriodOfRotationSeconds != nil {
		period := time.Duration(*wire.PeriodOfRotationSeconds) * time.Second
		upd.RotationPeriod = &period
	}
	if err := s.engine.SetPolicy(upd); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toWire(s.engine.Snapshot()))
}

func (s *Server) postRotate(w http.ResponseWriter, r *http.Request) {
	s.engine.RequestRotate()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) postReconfigure(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	s.engine.RequestReconfigure(force)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap.LastHealth == nil {
		writeJSON(w, http.StatusOK, map[string]string{"class": string(redundancy.HealthOk)})
		return
	}
	writeJSON(w, http.StatusOK, snap.LastHealth)
}

// psuEventWire is the inbound PSU state notification shape.
type psuEventWire struct {
	Name       string `json:"name"`
	Functional *bool  `json:"functional"`
}

func (s *Server) postPSUEvent(w http.ResponseWriter, r *http.Request) {
	var ev psuEventWire
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ev.Name == "" || ev.Functional == nil {
		writeError(w, http.StatusBadRequest, errors.New("name and functional are required"))
		return
	}
	s.engine.NotifyPSUState(ev.Name, *ev.Functional)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) postInventoryEvent(w http.ResponseWriter, r *http.Request) {
	s.engine.NotifyInventoryChange()
	w.WriteHeader(http.StatusAccepted)
}
