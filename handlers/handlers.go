package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mlm-project/logger"
	"mlm-project/mlm"
)

// Handler contains the HTTP handlers for the compensation API endpoints
type Handler struct {
	Engine *mlm.Engine

	// upper bound for the store read behind forest traversals
	timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// NewHandler creates and returns a new Handler instance
func NewHandler(e *mlm.Engine, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{Engine: e, timeout: timeout}
}

type registerRootRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type registerReferralRequest struct {
	ReferralAddress string `json:"referralAddress"`
	UserAddress     string `json:"userAddress"`
}

type stakeRequest struct {
	UserAddress   string          `json:"userAddress"`
	StakingAmount decimal.Decimal `json:"stakingAmount"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mlm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mlm.ErrAlreadyExists),
		errors.Is(err, mlm.ErrAlreadyRegistered),
		errors.Is(err, mlm.ErrAlreadyStaked):
		return http.StatusConflict
	case errors.Is(err, mlm.ErrInvalidAmount), errors.Is(err, mlm.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the status matching its kind.
func fail(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	status := statusFor(err)
	fields = append(fields, zap.Error(err))
	if status >= http.StatusInternalServerError {
		logger.Logger.Error(msg, fields...)
	} else {
		logger.Logger.Info(msg, fields...)
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Logger.Error("Failed to decode request", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// RegisterRoot handles POST requests creating the first participant
func (h *Handler) RegisterRoot(w http.ResponseWriter, r *http.Request) {
	var req registerRootRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.Engine.RegisterRoot(r.Context(), req.WalletAddress)
	if err != nil {
		fail(w, "Failed to register root", err, zap.String("wallet_address", req.WalletAddress))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Root registration successful",
		"participant": p,
	})
}

// RegisterReferral handles POST requests registering a participant under a sponsor
func (h *Handler) RegisterReferral(w http.ResponseWriter, r *http.Request) {
	var req registerReferralRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.Engine.RegisterReferral(r.Context(), req.ReferralAddress, req.UserAddress)
	if err != nil {
		fail(w, "Failed to register referral", err,
			zap.String("wallet_address", req.UserAddress),
			zap.String("sponsor_address", req.ReferralAddress))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Registration successful by referral address " + req.ReferralAddress,
		"participant": p,
	})
}

// Stake handles POST requests recording a participant's one-time stake
func (h *Handler) Stake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.Engine.Stake(r.Context(), req.UserAddress, req.StakingAmount)
	if err != nil {
		fail(w, "Failed to stake", err, zap.String("wallet_address", req.UserAddress))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Staking successful",
		"participant": p,
	})
}

// GetParticipant handles GET requests for a participant record
func (h *Handler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	p, err := h.Engine.Participant(r.Context(), address)
	if err != nil {
		fail(w, "Failed to get participant", err, zap.String("wallet_address", address))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"participant": p})
}

// GetStakingCapacity handles GET requests for the projected staking capacity
func (h *Handler) GetStakingCapacity(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	capacity, err := h.Engine.ProjectedStakingCapacity(r.Context(), address)
	if err != nil {
		fail(w, "Failed to calculate staking capacity", err, zap.String("wallet_address", address))
		return
	}
	writeJSON(w, http.StatusOK, capacity)
}

// GetLevelIncome handles GET requests for the whole-downline level income
func (h *Handler) GetLevelIncome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	address := mux.Vars(r)["address"]
	income, err := h.Engine.LevelIncome(ctx, address)
	if err != nil {
		fail(w, "Failed to calculate level income", err, zap.String("wallet_address", address))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_address":     address,
		"total_level_income": income,
	})
}

// GetPathLevelIncome handles GET requests for the single sponsor-path level income
func (h *Handler) GetPathLevelIncome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	address := mux.Vars(r)["address"]
	income, err := h.Engine.PathLevelIncome(ctx, address)
	if err != nil {
		fail(w, "Failed to calculate path level income", err, zap.String("wallet_address", address))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_address":    address,
		"path_level_income": income,
	})
}

// GetTeamIncome handles GET requests for team development qualification
func (h *Handler) GetTeamIncome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	address := mux.Vars(r)["address"]
	income, err := h.Engine.TeamDevIncome(ctx, address)
	if err != nil {
		fail(w, "Failed to calculate team income", err, zap.String("wallet_address", address))
		return
	}
	writeJSON(w, http.StatusOK, income)
}
