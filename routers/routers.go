package routers

import (
	"mlm-project/handlers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all the HTTP routes for the compensation engine
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Registers the first participant; fails once any participant exists
	r.HandleFunc("/participants/root", h.RegisterRoot).Methods("POST")

	// Registers a participant under an existing sponsor
	r.HandleFunc("/participants/referral", h.RegisterReferral).Methods("POST")

	// One-time stake; fixes the daily ROI tier
	r.HandleFunc("/participants/stake", h.Stake).Methods("POST")

	r.HandleFunc("/participants/{address}", h.GetParticipant).Methods("GET")

	// Capacity income projected from the binary index model
	r.HandleFunc("/participants/{address}/staking-capacity", h.GetStakingCapacity).Methods("GET")

	// Level income summed over the whole downline
	r.HandleFunc("/participants/{address}/level-income", h.GetLevelIncome).Methods("GET")

	// Level income along the single sponsor path from the root
	r.HandleFunc("/participants/{address}/level-income/path", h.GetPathLevelIncome).Methods("GET")

	// Team development stages the participant's legs qualify for
	r.HandleFunc("/participants/{address}/team-income", h.GetTeamIncome).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
