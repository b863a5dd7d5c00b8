package server

import (
	"encoding/json"
	"net/http"

	"github.com/felixge/fgprof"
	"github.com/go-chi/chi/v5"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	Replica        uint64 `json:"replica"`
	View           uint64 `json:"view"`
	Status         string `json:"status"`
	OpNumber       uint64 `json:"op_number"`
	CommitNumber   uint64 `json:"commit_number"`
	IsPrimary      bool   `json:"is_primary"`
	PrimaryAddress string `json:"primary_address"`
	Clients        int    `json:"clients"`
}

// DebugRouter serves metrics, a JSON view of the replica and a wall-clock
// profiler.
func DebugRouter(r *replica.Replica) http.Handler {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		s := r.Summary()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statusResponse{
			Replica:        s.ReplicaNumber,
			View:           s.ViewNumber,
			Status:         s.Status.String(),
			OpNumber:       s.OpNumber,
			CommitNumber:   s.CommitNumber,
			IsPrimary:      s.IsPrimary,
			PrimaryAddress: s.PrimaryAddress,
			Clients:        s.Clients,
		})
	})
	router.Handle("/debug/fgprof", fgprof.Handler())
	return router
}
