package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

type fakeAvailabilityRepo struct {
	rules      []*model.WeeklyAvailabilityRule
	exceptions []*model.AvailabilityException

	ops []string // "delete_rule", "create_rule", ...

	failCreateAfter int // fail the Nth create (1-based), 0 = never
	failDeleteAfter int
	createCalls     int
	deleteCalls     int
}

func (f *fakeAvailabilityRepo) ListRules(_ context.Context, _, _ uuid.UUID) ([]*model.WeeklyAvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeAvailabilityRepo) CreateRule(_ context.Context, rule *model.WeeklyAvailabilityRule) error {
	f.createCalls++
	if f.failCreateAfter > 0 && f.createCalls >= f.failCreateAfter {
		return errors.New("insert failed")
	}
	f.ops = append(f.ops, "create_rule")
	rule.ID = uuid.New()
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeAvailabilityRepo) DeleteRule(_ context.Context, id uuid.UUID) error {
	f.deleteCalls++
	if f.failDeleteAfter > 0 && f.deleteCalls >= f.failDeleteAfter {
		return errors.New("delete failed")
	}
	f.ops = append(f.ops, "delete_rule")
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAvailabilityRepo) ListExceptions(_ context.Context, _, _ uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	var out []*model.AvailabilityException
	for _, e := range f.exceptions {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) CreateException(_ context.Context, exc *model.AvailabilityException) error {
	f.createCalls++
	if f.failCreateAfter > 0 && f.createCalls >= f.failCreateAfter {
		return errors.New("insert failed")
	}
	f.ops = append(f.ops, "create_exception")
	exc.ID = uuid.New()
	f.exceptions = append(f.exceptions, exc)
	return nil
}

func (f *fakeAvailabilityRepo) DeleteException(_ context.Context, id uuid.UUID) error {
	f.deleteCalls++
	if f.failDeleteAfter > 0 && f.deleteCalls >= f.failDeleteAfter {
		return errors.New("delete failed")
	}
	f.ops = append(f.ops, "delete_exception")
	for i, e := range f.exceptions {
		if e.ID == id {
			f.exceptions = append(f.exceptions[:i], f.exceptions[i+1:]...)
			break
		}
	}
	return nil
}

func rule(weekday, startMin, endMin int) *model.WeeklyAvailabilityRule {
	r := &model.WeeklyAvailabilityRule{
		Weekday:     weekday,
		StartMinute: startMin,
		EndMinute:   endMin,
	}
	r.ID = uuid.New()
	return r
}

func TestReplaceWeeklySchedule_CreatesNewRules(t *testing.T) {
	repo := &fakeAvailabilityRepo{}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 1, Start: "09:00", End: "17:00"},
	})
	require.NoError(t, err)

	require.Len(t, repo.rules, 1)
	assert.Equal(t, 1, repo.rules[0].Weekday)
	assert.Equal(t, 9*60, repo.rules[0].StartMinute)
	assert.Equal(t, 17*60, repo.rules[0].EndMinute)
}

func TestReplaceWeeklySchedule_AdjacentBlocksMerge(t *testing.T) {
	repo := &fakeAvailabilityRepo{}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 2, Start: "09:00", End: "12:00"},
		{Weekday: 2, Start: "12:00", End: "17:00"},
	})
	require.NoError(t, err)

	require.Len(t, repo.rules, 1)
	assert.Equal(t, 9*60, repo.rules[0].StartMinute)
	assert.Equal(t, 17*60, repo.rules[0].EndMinute)
}

func TestReplaceWeeklySchedule_UnchangedIsNoop(t *testing.T) {
	repo := &fakeAvailabilityRepo{rules: []*model.WeeklyAvailabilityRule{rule(1, 540, 1020)}}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 1, Start: "09:00", End: "17:00"},
	})
	require.NoError(t, err)

	assert.Empty(t, repo.ops, "identical schedule should issue no backend calls")
}

func TestReplaceWeeklySchedule_DeletesBeforeCreates(t *testing.T) {
	repo := &fakeAvailabilityRepo{rules: []*model.WeeklyAvailabilityRule{rule(1, 540, 1020)}}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 1, Start: "10:00", End: "16:00"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"delete_rule", "create_rule"}, repo.ops)
	require.Len(t, repo.rules, 1)
	assert.Equal(t, 10*60, repo.rules[0].StartMinute)
}

func TestReplaceWeeklySchedule_FirstDeleteFailureIsClean(t *testing.T) {
	repo := &fakeAvailabilityRepo{
		rules:           []*model.WeeklyAvailabilityRule{rule(1, 540, 1020)},
		failDeleteAfter: 1,
	}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), nil)
	require.Error(t, err)

	var partial *apperrors.PartialCommitError
	assert.False(t, errors.As(err, &partial), "nothing was persisted, a clean retryable error is expected")
}

func TestReplaceWeeklySchedule_MidSequenceFailureIsPartial(t *testing.T) {
	repo := &fakeAvailabilityRepo{
		rules:           []*model.WeeklyAvailabilityRule{rule(1, 540, 1020)},
		failCreateAfter: 2,
	}
	svc := NewService(repo, nil)

	// Old Monday rule goes away, two new windows replace it; the
	// second insert fails after the delete and first insert landed.
	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 1, Start: "08:00", End: "10:00"},
		{Weekday: 1, Start: "14:00", End: "16:00"},
	})
	require.Error(t, err)

	var partial *apperrors.PartialCommitError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 1, partial.Deleted)
	assert.Equal(t, 1, partial.Created)
	assert.Equal(t, 2, partial.Wanted)
}

func TestReplaceWeeklySchedule_RejectsBadInput(t *testing.T) {
	svc := NewService(&fakeAvailabilityRepo{}, nil)

	err := svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 9, Start: "09:00", End: "17:00"},
	})
	require.Error(t, err)

	err = svc.ReplaceWeeklySchedule(context.Background(), uuid.New(), uuid.New(), []model.ScheduleBlock{
		{Weekday: 1, Start: "17:00", End: "09:00"},
	})
	require.Error(t, err)
}

func TestGetWeeklySchedule_ProjectsGrid(t *testing.T) {
	repo := &fakeAvailabilityRepo{rules: []*model.WeeklyAvailabilityRule{rule(1, 540, 600)}}
	svc := NewService(repo, nil)

	ws, err := svc.GetWeeklySchedule(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)

	require.Len(t, ws.Grid, 7)
	require.Len(t, ws.Grid[1], 96)
	assert.Equal(t, 1, ws.Grid[1][36]) // 09:00
	assert.Equal(t, 1, ws.Grid[1][39]) // 09:45
	assert.Equal(t, 0, ws.Grid[1][40]) // 10:00
}

func TestReplaceWeekExceptions_KeepsIdenticalRows(t *testing.T) {
	weekStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	keep := &model.AvailabilityException{
		Date:        weekStart.AddDate(0, 0, 1),
		StartMinute: 720,
		EndMinute:   780,
		IsAvailable: false,
	}
	keep.ID = uuid.New()
	stale := &model.AvailabilityException{
		Date:        weekStart.AddDate(0, 0, 2),
		StartMinute: 600,
		EndMinute:   660,
		IsAvailable: true,
	}
	stale.ID = uuid.New()

	repo := &fakeAvailabilityRepo{exceptions: []*model.AvailabilityException{keep, stale}}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeekExceptions(context.Background(), uuid.New(), uuid.New(), weekStart, []model.ExceptionBlockRequest{
		{Date: "2025-06-03", Start: "12:00", End: "13:00", IsAvailable: false},
		{Date: "2025-06-05", Start: "08:00", End: "09:00", IsAvailable: true},
	})
	require.NoError(t, err)

	require.Len(t, repo.exceptions, 2)
	ids := map[uuid.UUID]bool{}
	for _, e := range repo.exceptions {
		ids[e.ID] = true
	}
	assert.True(t, ids[keep.ID], "identical row must survive the replace")
	assert.False(t, ids[stale.ID])
	assert.Equal(t, []string{"delete_exception", "create_exception"}, repo.ops)
}

func TestReplaceWeekExceptions_RejectsDateOutsideWindow(t *testing.T) {
	weekStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc := NewService(&fakeAvailabilityRepo{}, nil)

	err := svc.ReplaceWeekExceptions(context.Background(), uuid.New(), uuid.New(), weekStart, []model.ExceptionBlockRequest{
		{Date: "2025-06-09", Start: "09:00", End: "10:00"},
	})
	require.Error(t, err)
}

func TestReplaceWeekExceptions_OutOfWindowRowsUntouched(t *testing.T) {
	weekStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	nextWeek := &model.AvailabilityException{
		Date:        weekStart.AddDate(0, 0, 9),
		StartMinute: 540,
		EndMinute:   600,
	}
	nextWeek.ID = uuid.New()

	repo := &fakeAvailabilityRepo{exceptions: []*model.AvailabilityException{nextWeek}}
	svc := NewService(repo, nil)

	err := svc.ReplaceWeekExceptions(context.Background(), uuid.New(), uuid.New(), weekStart, nil)
	require.NoError(t, err)

	require.Len(t, repo.exceptions, 1)
	assert.Equal(t, nextWeek.ID, repo.exceptions[0].ID)
}
