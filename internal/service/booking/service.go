package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/cache"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/schedule"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

const (
	clinicCacheTTL     = 10 * time.Minute
	clinicCacheCleanup = 30 * time.Minute
)

// Notifier sends the booking confirmation. Failures are logged and
// never fail the booking itself.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, to, patientName, providerName string, start, end time.Time, tz string) error
}

// Service resolves bookable slots and creates appointments. All the
// hard logic lives in the pure schedule package; this layer fetches
// the snapshot, converts between storage UTC and clinic-local wall
// clock at the boundary, and owns the caches.
type Service struct {
	availRepo    repository.AvailabilityRepository
	apptRepo     repository.AppointmentRepository
	clinicRepo   repository.ClinicRepository
	providerRepo repository.ProviderRepository
	notifier     Notifier
	slotCache    *cache.SlotCache
	clinicCache  *gocache.Cache
	defaultTZ    string
	now          func() time.Time
}

func NewService(
	availRepo repository.AvailabilityRepository,
	apptRepo repository.AppointmentRepository,
	clinicRepo repository.ClinicRepository,
	providerRepo repository.ProviderRepository,
	notifier Notifier,
	slotCache *cache.SlotCache,
	defaultTZ string,
) *Service {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Service{
		availRepo:    availRepo,
		apptRepo:     apptRepo,
		clinicRepo:   clinicRepo,
		providerRepo: providerRepo,
		notifier:     notifier,
		slotCache:    slotCache,
		clinicCache:  gocache.New(clinicCacheTTL, clinicCacheCleanup),
		defaultTZ:    defaultTZ,
		now:          time.Now,
	}
}

// GetDaySlots returns the bookable windows for one provider and date.
// The date string is interpreted in the clinic's local calendar.
func (s *Service) GetDaySlots(ctx context.Context, providerID, clinicID uuid.UUID, dateStr string) ([]schedule.DisplaySlot, error) {
	if providerID == uuid.Nil || dateStr == "" {
		return []schedule.DisplaySlot{}, nil
	}

	if slots, ok := s.slotCache.Get(ctx, providerID, clinicID, dateStr); ok {
		return slots, nil
	}

	loc, err := s.clinicLocation(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", dateStr))
	}

	store, err := s.buildStore(ctx, providerID, clinicID, date)
	if err != nil {
		return nil, err
	}

	booked, err := s.bookedIntervals(ctx, providerID, date, loc)
	if err != nil {
		return nil, err
	}

	slots := schedule.ResolveSlots(store, date, booked, s.now().In(loc))
	s.slotCache.Set(ctx, providerID, clinicID, dateStr, slots)
	return slots, nil
}

// CreateAppointment books one resolved slot. The requested window must
// be one of the slots the resolver would currently offer; the conflict
// re-check against persisted bookings closes the race with concurrent
// bookings between resolve and create.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return nil, errors.NewValidation("invalid clinic ID")
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return nil, errors.NewValidation("invalid provider ID")
	}

	loc, err := s.clinicLocation(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("invalid date %q", req.Date))
	}

	start, err := schedule.ParseTimeOfDay(req.Start)
	if err != nil {
		return nil, err
	}
	if start.Minute != 0 {
		return nil, errors.NewValidation("appointments must start on the hour")
	}

	slots, err := s.GetDaySlots(ctx, providerID, clinicID, req.Date)
	if err != nil {
		return nil, err
	}
	offered := false
	for _, slot := range slots {
		if slot.Start == start {
			offered = true
			break
		}
	}
	if !offered {
		return nil, errors.NewConflict("requested slot is not available", nil)
	}

	// Clinic-local wall clock to storage UTC, only here at the boundary.
	startUTC := date.Add(time.Duration(start.Minutes()) * time.Minute).UTC()
	endUTC := startUTC.Add(time.Hour)

	conflict, err := s.apptRepo.CheckConflicts(ctx, providerID, startUTC, endUTC, nil)
	if err != nil {
		return nil, errors.NewFetchFailed("booked appointments", err)
	}
	if conflict {
		return nil, errors.NewConflict("slot was booked by someone else", nil)
	}

	appt := &model.Appointment{
		ClinicID:     clinicID,
		ProviderID:   providerID,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		StartTime:    startUTC,
		EndTime:      endUTC,
		Status:       model.AppointmentStatusScheduled,
		Notes:        req.Notes,
	}
	if err := s.apptRepo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := s.slotCache.InvalidateProvider(ctx, providerID, clinicID); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate slot cache after booking")
	}

	s.notifyConfirmation(ctx, appt, loc.String())

	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.NewNotFound("appointment", err)
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.apptRepo.List(ctx, filters)
	if err != nil {
		return nil, errors.NewFetchFailed("appointments", err)
	}
	return appointments, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) error {
	appt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return errors.NewNotFound("appointment", err)
	}

	if appt.Status == model.AppointmentStatusCancelled {
		return errors.NewConflict("appointment is already cancelled", nil)
	}
	if appt.Status == model.AppointmentStatusCompleted {
		return errors.NewConflict("cannot cancel a completed appointment", nil)
	}

	appt.Status = model.AppointmentStatusCancelled
	appt.CancelReason = &reason

	if err := s.apptRepo.Update(ctx, appt); err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	if err := s.slotCache.InvalidateProvider(ctx, appt.ProviderID, appt.ClinicID); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate slot cache after cancellation")
	}
	return nil
}

// buildStore assembles the pure availability snapshot for one date.
func (s *Service) buildStore(ctx context.Context, providerID, clinicID uuid.UUID, date time.Time) (*schedule.AvailabilityStore, error) {
	rules, err := s.availRepo.ListRules(ctx, providerID, clinicID)
	if err != nil {
		return nil, errors.NewFetchFailed("availability rules", err)
	}
	exceptions, err := s.availRepo.ListExceptions(ctx, providerID, clinicID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.NewFetchFailed("availability exceptions", err)
	}

	store := schedule.NewAvailabilityStore()
	for _, r := range rules {
		store.AddRule(time.Weekday(r.Weekday), schedule.Interval{Start: r.StartMinute, End: r.EndMinute})
	}
	for _, e := range exceptions {
		store.AddException(date, schedule.ExceptionBlock{
			ID:        e.ID,
			Interval:  schedule.Interval{Start: e.StartMinute, End: e.EndMinute},
			Available: e.IsAvailable,
		})
	}
	return store, nil
}

// bookedIntervals converts the day's active appointments from storage
// UTC into clinic-local minute offsets, clipped to the date.
func (s *Service) bookedIntervals(ctx context.Context, providerID uuid.UUID, date time.Time, loc *time.Location) ([]schedule.Interval, error) {
	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)

	appointments, err := s.apptRepo.ListForProviderRange(ctx, providerID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, errors.NewFetchFailed("booked appointments", err)
	}

	var booked []schedule.Interval
	for _, a := range appointments {
		start := a.StartTime.In(loc)
		end := a.EndTime.In(loc)
		if end.Before(dayStart) || !start.Before(dayEnd) {
			continue
		}
		startMin := 0
		if start.After(dayStart) {
			startMin = start.Hour()*60 + start.Minute()
		}
		endMin := schedule.DayMinutes
		if end.Before(dayEnd) {
			endMin = end.Hour()*60 + end.Minute()
		}
		if startMin < endMin {
			booked = append(booked, schedule.Interval{Start: startMin, End: endMin})
		}
	}
	return booked, nil
}

func (s *Service) clinicLocation(ctx context.Context, clinicID uuid.UUID) (*time.Location, error) {
	if clinicID == uuid.Nil {
		return time.LoadLocation(s.defaultTZ)
	}

	if cached, ok := s.clinicCache.Get(clinicID.String()); ok {
		return cached.(*time.Location), nil
	}

	clinic, err := s.clinicRepo.Get(ctx, clinicID)
	if err != nil {
		return nil, errors.NewFetchFailed("clinic", err)
	}

	tz := clinic.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("clinic has invalid timezone %q", tz))
	}

	s.clinicCache.Set(clinicID.String(), loc, gocache.DefaultExpiration)
	return loc, nil
}

func (s *Service) notifyConfirmation(ctx context.Context, appt *model.Appointment, tz string) {
	if s.notifier == nil || appt.PatientEmail == "" {
		return
	}

	providerName := "your provider"
	if provider, err := s.providerRepo.Get(ctx, appt.ProviderID); err == nil {
		providerName = provider.FirstName + " " + provider.LastName
	}

	go func() {
		if err := s.notifier.SendBookingConfirmation(context.Background(), appt.PatientEmail,
			appt.PatientName, providerName, appt.StartTime, appt.EndTime, tz); err != nil {
			log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to send booking confirmation")
		}
	}()
}
