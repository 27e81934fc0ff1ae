package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevasetu/backoffice/internal/models"
)

type memDonationStore struct {
	nextID    int64
	donations []models.Donation
}

func (s *memDonationStore) CreateDonation(_ context.Context, d models.Donation) (models.Donation, error) {
	s.nextID++
	d.ID = s.nextID
	d.CreatedAt = time.Now()
	s.donations = append(s.donations, d)
	return d, nil
}

func (s *memDonationStore) ListDonations(_ context.Context, limit int) ([]models.Donation, error) {
	if limit <= 0 || limit > len(s.donations) {
		limit = len(s.donations)
	}
	out := make([]models.Donation, limit)
	copy(out, s.donations[:limit])
	return out, nil
}

func testDonationHandler(store *memDonationStore) *DonationHandler {
	return NewDonationHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var recorder = models.Profile{ID: 9, Username: "asha", Role: models.RoleTreasurer, Status: models.StatusActive}

func TestCreateDonationStampsRecorder(t *testing.T) {
	store := &memDonationStore{}
	handler := testDonationHandler(store)

	rec, env := doJSON(t, handler.Create, http.MethodPost, "/donations",
		`{"devotee_name":"Lakshmi","amount":5100,"purpose":"annadanam"}`, &recorder)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Donation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Lakshmi", created.DevoteeName)
	assert.Equal(t, int64(5100), created.Amount)
	assert.Equal(t, recorder.ID, created.RecordedBy)
}

func TestCreateDonationValidation(t *testing.T) {
	handler := testDonationHandler(&memDonationStore{})

	cases := map[string]string{
		"missing name":    `{"amount":100}`,
		"zero amount":     `{"devotee_name":"Lakshmi","amount":0}`,
		"negative amount": `{"devotee_name":"Lakshmi","amount":-5}`,
		"bad json":        `{`,
	}
	for name, body := range cases {
		rec, _ := doJSON(t, handler.Create, http.MethodPost, "/donations", body, &recorder)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestCreateDonationWithoutPrincipalIs401(t *testing.T) {
	handler := testDonationHandler(&memDonationStore{})

	rec, _ := doJSON(t, handler.Create, http.MethodPost, "/donations",
		`{"devotee_name":"Lakshmi","amount":100}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDonationsEmptyIsArrayNotNull(t *testing.T) {
	handler := testDonationHandler(&memDonationStore{})

	rec, env := doJSON(t, handler.List, http.MethodGet, "/donations", "", &recorder)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(env.Data))
}

func TestListDonationsReturnsRecords(t *testing.T) {
	store := &memDonationStore{}
	_, err := store.CreateDonation(context.Background(), models.Donation{DevoteeName: "Lakshmi", Amount: 100, RecordedBy: 9})
	require.NoError(t, err)
	handler := testDonationHandler(store)

	rec, env := doJSON(t, handler.List, http.MethodGet, "/donations", "", &recorder)
	require.Equal(t, http.StatusOK, rec.Code)

	var donations []models.Donation
	require.NoError(t, json.Unmarshal(env.Data, &donations))
	require.Len(t, donations, 1)
	assert.Equal(t, "Lakshmi", donations[0].DevoteeName)
}
