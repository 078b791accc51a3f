package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/schedule"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

var commitResults = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schedule_commits_total",
		Help: "Schedule replace outcomes by kind and result",
	},
	[]string{"kind", "result"},
)

// SlotInvalidator drops cached slot resolutions after a commit.
type SlotInvalidator interface {
	InvalidateProvider(ctx context.Context, providerID, clinicID uuid.UUID) error
}

// Service owns all writes to recurring rules and exceptions. The
// backend has no multi-row transaction, so every replace runs as
// individual deletes followed by individual creates; a failure in the
// middle is surfaced as a PartialCommitError, never swallowed.
type Service struct {
	repo  repository.AvailabilityRepository
	cache SlotInvalidator
	now   func() time.Time
}

func NewService(repo repository.AvailabilityRepository, cache SlotInvalidator) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// GetWeeklySchedule returns the persisted recurring rules together
// with their grid projection for the weekly editor.
func (s *Service) GetWeeklySchedule(ctx context.Context, providerID, clinicID uuid.UUID) (*model.WeeklySchedule, error) {
	rules, err := s.repo.ListRules(ctx, providerID, clinicID)
	if err != nil {
		return nil, errors.NewFetchFailed("availability rules", err)
	}

	store := schedule.NewAvailabilityStore()
	for _, r := range rules {
		store.AddRule(time.Weekday(r.Weekday), schedule.Interval{Start: r.StartMinute, End: r.EndMinute})
	}

	return &model.WeeklySchedule{
		ProviderID: providerID,
		ClinicID:   clinicID,
		Rules:      rules,
		Grid:       gridCells(store.WeeklyGrid()),
	}, nil
}

// ReplaceWeeklySchedule is a full replace of the provider's recurring
// schedule. The submitted blocks are canonicalized through the grid
// codec (adjacent blocks merge, zero-length blocks drop) and diffed
// against the persisted rows, so unchanged rows are left alone.
func (s *Service) ReplaceWeeklySchedule(ctx context.Context, providerID, clinicID uuid.UUID, blocks []model.ScheduleBlock) error {
	desired, err := parseScheduleBlocks(blocks)
	if err != nil {
		return err
	}

	rules, err := s.repo.ListRules(ctx, providerID, clinicID)
	if err != nil {
		return errors.NewFetchFailed("availability rules", err)
	}

	persisted := make(map[int][]schedule.PersistedInterval)
	for _, r := range rules {
		persisted[r.Weekday] = append(persisted[r.Weekday], schedule.PersistedInterval{
			ID:       r.ID,
			Interval: schedule.Interval{Start: r.StartMinute, End: r.EndMinute},
		})
	}

	session := schedule.NewEditSession(persisted, time.Time{}, s.now())
	for col := 0; col < schedule.DaysPerWeek; col++ {
		session.SetColumnIntervals(col, desired[col])
	}
	plan := session.Plan()

	if plan.Empty() {
		commitResults.WithLabelValues("weekly", "noop").Inc()
		return nil
	}

	if err := s.applyPlan(ctx, "weekly", plan, func(c schedule.PlannedCreate) error {
		return s.repo.CreateRule(ctx, &model.WeeklyAvailabilityRule{
			ProviderID:  providerID,
			ClinicID:    clinicID,
			Weekday:     c.Column,
			StartMinute: c.Interval.Start,
			EndMinute:   c.Interval.End,
		})
	}, s.repo.DeleteRule); err != nil {
		return err
	}

	s.invalidate(ctx, providerID, clinicID)
	return nil
}

// GetWeekExceptions returns the override rows for a 7-day window plus
// the tri-state grid the exception editor renders (regular schedule,
// exception blocks, untouched).
func (s *Service) GetWeekExceptions(ctx context.Context, providerID, clinicID uuid.UUID, weekStart time.Time) (*model.WeekExceptions, error) {
	rules, err := s.repo.ListRules(ctx, providerID, clinicID)
	if err != nil {
		return nil, errors.NewFetchFailed("availability rules", err)
	}
	exceptions, err := s.repo.ListExceptions(ctx, providerID, clinicID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return nil, errors.NewFetchFailed("availability exceptions", err)
	}

	store := schedule.NewAvailabilityStore()
	for _, r := range rules {
		store.AddRule(time.Weekday(r.Weekday), schedule.Interval{Start: r.StartMinute, End: r.EndMinute})
	}
	for _, e := range exceptions {
		store.AddException(e.Date, schedule.ExceptionBlock{
			ID:        e.ID,
			Interval:  schedule.Interval{Start: e.StartMinute, End: e.EndMinute},
			Available: e.IsAvailable,
		})
	}

	return &model.WeekExceptions{
		ProviderID: providerID,
		ClinicID:   clinicID,
		WeekStart:  weekStart.Format("2006-01-02"),
		Exceptions: exceptions,
		Grid:       gridCells(store.WeekGrid(weekStart)),
	}, nil
}

// ReplaceWeekExceptions is a full replace scoped to the 7 days from
// weekStart; exception rows outside the window are untouched. Rows
// identical to a submitted block survive, everything else in the
// window is deleted and the new blocks are created.
func (s *Service) ReplaceWeekExceptions(ctx context.Context, providerID, clinicID uuid.UUID, weekStart time.Time, blocks []model.ExceptionBlockRequest) error {
	desired, err := parseExceptionBlocks(weekStart, blocks)
	if err != nil {
		return err
	}

	weekEnd := weekStart.AddDate(0, 0, 7)
	existing, err := s.repo.ListExceptions(ctx, providerID, clinicID, weekStart, weekEnd)
	if err != nil {
		return errors.NewFetchFailed("availability exceptions", err)
	}

	plan := diffExceptions(existing, desired)
	if len(plan.deletes) == 0 && len(plan.creates) == 0 {
		commitResults.WithLabelValues("exceptions", "noop").Inc()
		return nil
	}

	deleted := 0
	for _, id := range plan.deletes {
		if err := s.repo.DeleteException(ctx, id); err != nil {
			return s.commitFailure(ctx, "exceptions", deleted, 0, len(plan.creates), err)
		}
		deleted++
	}

	created := 0
	for _, want := range plan.creates {
		exc := want
		exc.ProviderID = providerID
		exc.ClinicID = clinicID
		if err := s.repo.CreateException(ctx, &exc); err != nil {
			return s.commitFailure(ctx, "exceptions", deleted, created, len(plan.creates), err)
		}
		created++
	}

	commitResults.WithLabelValues("exceptions", "applied").Inc()
	s.invalidate(ctx, providerID, clinicID)
	return nil
}

// applyPlan executes deletes before creates. Interleaving would let
// the backend momentarily present overlapping old and new rows as
// valid availability.
func (s *Service) applyPlan(ctx context.Context, kind string, plan schedule.CommitPlan,
	create func(schedule.PlannedCreate) error, del func(context.Context, uuid.UUID) error) error {

	deleted := 0
	for _, d := range plan.Deletes {
		if err := del(ctx, d.ID); err != nil {
			return s.commitFailure(ctx, kind, deleted, 0, len(plan.Creates), err)
		}
		deleted++
	}

	created := 0
	for _, c := range plan.Creates {
		if err := create(c); err != nil {
			return s.commitFailure(ctx, kind, deleted, created, len(plan.Creates), err)
		}
		created++
	}

	commitResults.WithLabelValues(kind, "applied").Inc()
	return nil
}

// commitFailure distinguishes a clean failure (nothing changed yet,
// safe to retry wholesale) from a partial one (persisted state now
// matches neither old nor new schedule).
func (s *Service) commitFailure(ctx context.Context, kind string, deleted, created, wanted int, err error) error {
	if deleted == 0 && created == 0 {
		commitResults.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("failed to replace %s schedule: %w", kind, err)
	}
	commitResults.WithLabelValues(kind, "partial").Inc()
	log.Error().Err(err).
		Str("kind", kind).
		Int("deleted", deleted).
		Int("created", created).
		Int("wanted", wanted).
		Msg("schedule replace aborted mid-sequence")
	return &errors.PartialCommitError{Deleted: deleted, Created: created, Wanted: wanted, Err: err}
}

func (s *Service) invalidate(ctx context.Context, providerID, clinicID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProvider(ctx, providerID, clinicID); err != nil {
		log.Warn().Err(err).Str("provider_id", providerID.String()).Msg("failed to invalidate slot cache")
	}
}

func parseScheduleBlocks(blocks []model.ScheduleBlock) (map[int][]schedule.Interval, error) {
	out := make(map[int][]schedule.Interval)
	for _, b := range blocks {
		if b.Weekday < 0 || b.Weekday >= schedule.DaysPerWeek {
			return nil, errors.NewValidation(fmt.Sprintf("weekday %d out of range", b.Weekday))
		}
		iv, err := parseInterval(b.Start, b.End)
		if err != nil {
			return nil, err
		}
		out[b.Weekday] = append(out[b.Weekday], iv)
	}
	return out, nil
}

func parseExceptionBlocks(weekStart time.Time, blocks []model.ExceptionBlockRequest) ([]model.AvailabilityException, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)
	out := make([]model.AvailabilityException, 0, len(blocks))
	for _, b := range blocks {
		date, err := time.ParseInLocation("2006-01-02", b.Date, weekStart.Location())
		if err != nil {
			return nil, errors.NewValidation(fmt.Sprintf("invalid date %q", b.Date))
		}
		if date.Before(weekStart) || !date.Before(weekEnd) {
			return nil, errors.NewValidation(fmt.Sprintf("date %s outside week of %s", b.Date, weekStart.Format("2006-01-02")))
		}
		iv, err := parseInterval(b.Start, b.End)
		if err != nil {
			return nil, err
		}
		exc := model.AvailabilityException{
			Date:        date,
			StartMinute: iv.Start,
			EndMinute:   iv.End,
			IsAvailable: b.IsAvailable,
		}
		if b.Note != "" {
			note := b.Note
			exc.Note = &note
		}
		out = append(out, exc)
	}
	return out, nil
}

func parseInterval(start, end string) (schedule.Interval, error) {
	st, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return schedule.Interval{}, err
	}
	en, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.NewInterval(st, en)
}

type exceptionPlan struct {
	deletes []uuid.UUID
	creates []model.AvailabilityException
}

type exceptionKey struct {
	date      string
	start     int
	end       int
	available bool
	note      string
}

func keyFor(date time.Time, start, end int, available bool, note *string) exceptionKey {
	k := exceptionKey{
		date:      date.Format("2006-01-02"),
		start:     start,
		end:       end,
		available: available,
	}
	if note != nil {
		k.note = *note
	}
	return k
}

// diffExceptions keeps rows that exactly match a submitted block and
// plans deletes/creates for the rest, mirroring the grid diff the
// weekly editor uses.
func diffExceptions(existing []*model.AvailabilityException, desired []model.AvailabilityException) exceptionPlan {
	var plan exceptionPlan

	wanted := make(map[exceptionKey]int)
	for _, d := range desired {
		wanted[keyFor(d.Date, d.StartMinute, d.EndMinute, d.IsAvailable, d.Note)]++
	}

	matched := make(map[exceptionKey]int)
	for _, e := range existing {
		k := keyFor(e.Date, e.StartMinute, e.EndMinute, e.IsAvailable, e.Note)
		if matched[k] < wanted[k] {
			matched[k]++
			continue
		}
		plan.deletes = append(plan.deletes, e.ID)
	}

	created := make(map[exceptionKey]int)
	for _, d := range desired {
		k := keyFor(d.Date, d.StartMinute, d.EndMinute, d.IsAvailable, d.Note)
		if created[k] < wanted[k]-matched[k] {
			created[k]++
			plan.creates = append(plan.creates, d)
		}
	}
	return plan
}

func gridCells(g *schedule.TimeGrid) [][]int {
	out := make([][]int, schedule.DaysPerWeek)
	for day := 0; day < schedule.DaysPerWeek; day++ {
		col := make([]int, schedule.CellsPerDay)
		for c, state := range g.Column(day) {
			col[c] = int(state)
		}
		out[day] = col
	}
	return out
}
