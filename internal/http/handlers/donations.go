package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sevasetu/backoffice/internal/http/respond"
	"github.com/sevasetu/backoffice/internal/middleware"
	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/models/dto"
	"github.com/sevasetu/backoffice/internal/storage"
)

// DonationHandler is the exemplar domain controller: validate, delegate to
// the store, wrap. The other back-office entities follow the same pattern.
type DonationHandler struct {
	store storage.DonationStore
	log   *slog.Logger
}

// NewDonationHandler constructs the handler.
func NewDonationHandler(store storage.DonationStore, log *slog.Logger) *DonationHandler {
	return &DonationHandler{store: store, log: log}
}

// List returns recent donations. Any authenticated user may read.
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	donations, err := h.store.ListDonations(r.Context(), limit)
	if err != nil {
		h.log.Error("list donations failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list donations")
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	respond.JSON(w, http.StatusOK, donations)
}

// Create records a donation. Routed behind the admin/treasurer gate.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.DevoteeName) == "" || req.Amount <= 0 {
		respond.Error(w, http.StatusBadRequest, "devotee_name and a positive amount are required")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "access token required")
		return
	}

	created, err := h.store.CreateDonation(r.Context(), models.Donation{
		DevoteeName: strings.TrimSpace(req.DevoteeName),
		Amount:      req.Amount,
		Purpose:     strings.TrimSpace(req.Purpose),
		RecordedBy:  user.ID,
	})
	if err != nil {
		h.log.Error("create donation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to record donation")
		return
	}

	respond.JSON(w, http.StatusCreated, created)
}
