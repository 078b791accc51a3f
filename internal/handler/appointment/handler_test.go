package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/service/booking"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

var (
	providerID = uuid.New()
	clinicID   = uuid.New()
)

type stubAvailRepo struct{}

func (stubAvailRepo) ListRules(_ context.Context, _, _ uuid.UUID) ([]*model.WeeklyAvailabilityRule, error) {
	// Every weekday 09:00-17:00.
	var rules []*model.WeeklyAvailabilityRule
	for wd := 1; wd <= 5; wd++ {
		r := &model.WeeklyAvailabilityRule{Weekday: wd, StartMinute: 540, EndMinute: 1020}
		r.ID = uuid.New()
		rules = append(rules, r)
	}
	return rules, nil
}

func (stubAvailRepo) CreateRule(_ context.Context, _ *model.WeeklyAvailabilityRule) error { return nil }
func (stubAvailRepo) DeleteRule(_ context.Context, _ uuid.UUID) error                     { return nil }

func (stubAvailRepo) ListExceptions(_ context.Context, _, _ uuid.UUID, _, _ time.Time) ([]*model.AvailabilityException, error) {
	return nil, nil
}

func (stubAvailRepo) CreateException(_ context.Context, _ *model.AvailabilityException) error {
	return nil
}
func (stubAvailRepo) DeleteException(_ context.Context, _ uuid.UUID) error { return nil }

type stubApptRepo struct {
	appointments []*model.Appointment
}

func (s *stubApptRepo) Create(_ context.Context, a *model.Appointment) error {
	a.ID = uuid.New()
	s.appointments = append(s.appointments, a)
	return nil
}

func (s *stubApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	for _, a := range s.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperrors.NewNotFound("appointment", nil)
}

func (s *stubApptRepo) Update(_ context.Context, a *model.Appointment) error {
	for i, old := range s.appointments {
		if old.ID == a.ID {
			s.appointments[i] = a
			return nil
		}
	}
	return apperrors.NewNotFound("appointment", nil)
}

func (s *stubApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointments, nil
}

func (s *stubApptRepo) ListForProviderRange(_ context.Context, _ uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.appointments {
		if a.Status == model.AppointmentStatusScheduled && a.StartTime.Before(to) && a.EndTime.After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApptRepo) CheckConflicts(_ context.Context, _ uuid.UUID, start, end time.Time, _ *uuid.UUID) (bool, error) {
	for _, a := range s.appointments {
		if a.Status == model.AppointmentStatusScheduled && a.StartTime.Before(end) && a.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

type stubClinicRepo struct{}

func (stubClinicRepo) Get(_ context.Context, _ uuid.UUID) (*model.Clinic, error) {
	c := &model.Clinic{Name: "Test Clinic", Timezone: "UTC"}
	c.ID = clinicID
	return c, nil
}

type stubProviderRepo struct{}

func (stubProviderRepo) Get(_ context.Context, _ uuid.UUID) (*model.Provider, error) {
	p := &model.Provider{FirstName: "Ada", LastName: "Lovelace"}
	p.ID = providerID
	return p, nil
}

func setupRouter(apptRepo *stubApptRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	svc := booking.NewService(stubAvailRepo{}, apptRepo, stubClinicRepo{}, stubProviderRepo{}, nil, nil, "UTC")
	h := NewHandler(svc)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

// futureMonday returns the next Monday at least a week out, so slot
// resolution never treats the test date as past.
func futureMonday() string {
	d := time.Now().UTC().AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func TestGetSlots(t *testing.T) {
	engine := setupRouter(&stubApptRepo{})

	url := fmt.Sprintf("/api/v1/providers/%s/slots?clinic_id=%s&date=%s", providerID, clinicID, futureMonday())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Slots []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Slots, 8)
	assert.Equal(t, "09:00", resp.Data.Slots[0].Start)
	assert.Equal(t, "10:00", resp.Data.Slots[0].End)
}

func TestGetSlots_MissingDate(t *testing.T) {
	engine := setupRouter(&stubApptRepo{})

	url := fmt.Sprintf("/api/v1/providers/%s/slots?clinic_id=%s", providerID, clinicID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAppointment(t *testing.T) {
	apptRepo := &stubApptRepo{}
	engine := setupRouter(apptRepo)

	body := fmt.Sprintf(`{
		"clinic_id": %q, "provider_id": %q,
		"patient_name": "Pat Doe", "patient_email": "pat@example.com",
		"date": %q, "start": "10:00"
	}`, clinicID, providerID, futureMonday())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, apptRepo.appointments, 1)
	assert.Equal(t, "Pat Doe", apptRepo.appointments[0].PatientName)
}

func TestCreateAppointment_MissingEmailRejected(t *testing.T) {
	engine := setupRouter(&stubApptRepo{})

	body := fmt.Sprintf(`{
		"clinic_id": %q, "provider_id": %q,
		"patient_name": "Pat Doe",
		"date": %q, "start": "10:00"
	}`, clinicID, providerID, futureMonday())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAppointment_DoubleBookingConflicts(t *testing.T) {
	apptRepo := &stubApptRepo{}
	engine := setupRouter(apptRepo)

	body := fmt.Sprintf(`{
		"clinic_id": %q, "provider_id": %q,
		"patient_name": "Pat Doe", "patient_email": "pat@example.com",
		"date": %q, "start": "10:00"
	}`, clinicID, providerID, futureMonday())

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)
		require.Equal(t, want, w.Code, "request %d", i)
	}
	require.Len(t, apptRepo.appointments, 1)
}

func TestCancelAppointment(t *testing.T) {
	apptRepo := &stubApptRepo{}
	engine := setupRouter(apptRepo)

	appt := &model.Appointment{
		ClinicID:   clinicID,
		ProviderID: providerID,
		StartTime:  time.Now().Add(48 * time.Hour),
		EndTime:    time.Now().Add(49 * time.Hour),
		Status:     model.AppointmentStatusScheduled,
	}
	appt.ID = uuid.New()
	apptRepo.appointments = append(apptRepo.appointments, appt)

	url := fmt.Sprintf("/api/v1/appointments/%s/cancel", appt.ID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"reason":"patient request"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.AppointmentStatusCancelled, appt.Status)

	// Second cancel conflicts.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"reason":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
