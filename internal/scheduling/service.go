package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

// Service generates the weekly schedule: one assignment per (route, date)
// slot, ranked candidates, unfilled fallback.
type Service interface {
	GenerateWeek(ctx context.Context, orgID uuid.UUID, weekStart time.Time) (*WeekReport, error)
}

// WeekReport summarizes one generation pass.
type WeekReport struct {
	WeekStart time.Time
	Assigned  int
	Unfilled  int
	Skipped   int
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewService wires scheduler dependencies.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("scheduling repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, logg: logg}, nil
}

// candidate carries one driver's ranking inputs for a single slot.
type candidate struct {
	driver           *models.Driver
	routeCompletions int
	completionRate   float64
	attendanceRate   float64
}

// GenerateWeek fills every (route, date) slot of the week starting at
// weekStart. Slots that already carry an assignment row are skipped, so
// re-running for a generated week performs zero additional mutations.
func (s *service) GenerateWeek(ctx context.Context, orgID uuid.UUID, weekStart time.Time) (*WeekReport, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	start := truncateToDay(weekStart)
	end := start.Add(7 * 24 * time.Hour)

	routes, err := s.repo.ListActiveRoutes(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list routes")
	}
	pool, err := s.loadPool(ctx, orgID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListWeekAssignments(ctx, orgID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list week assignments")
	}

	occupied := make(map[slotKey]bool, len(existing))
	used := make(map[uuid.UUID]int)
	busy := make(map[dayKey]bool)
	for _, assignment := range existing {
		occupied[slotKey{assignment.RouteID, dayOf(assignment.Date)}] = true
		if assignment.DriverID != nil && assignment.Status.HoldsDriver() {
			used[*assignment.DriverID]++
			busy[dayKey{*assignment.DriverID, dayOf(assignment.Date)}] = true
		}
	}

	report := &WeekReport{WeekStart: start}
	newlyAssigned := make(map[uuid.UUID]int)
	var errs error

	for _, route := range routes {
		route := route
		completions, err := s.repo.RouteCompletions(ctx, orgID, route.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("route %s: %w", route.ID, err))
			continue
		}
		for day := 0; day < 7; day++ {
			date := start.Add(time.Duration(day) * 24 * time.Hour)
			key := slotKey{route.ID, date}
			if occupied[key] {
				report.Skipped++
				continue
			}

			winner := s.pickCandidate(pool, route, date, completions, used, busy)
			if err := s.createSlot(ctx, orgID, route.ID, date, winner); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("route %s %s: %w", route.ID, date.Format("2006-01-02"), err))
				continue
			}
			occupied[key] = true
			if winner == nil {
				report.Unfilled++
				continue
			}
			report.Assigned++
			used[winner.ID]++
			busy[dayKey{winner.ID, date}] = true
			newlyAssigned[winner.ID]++
		}
	}

	if err := s.notifyScheduled(ctx, orgID, start, newlyAssigned, used); err != nil {
		errs = multierr.Append(errs, err)
	}

	logCtx := s.logg.WithOrgID(ctx, orgID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"week_start": start.Format("2006-01-02"),
		"assigned":   report.Assigned,
		"unfilled":   report.Unfilled,
		"skipped":    report.Skipped,
	})
	s.logg.Info(logCtx, "week generation pass finished")
	return report, errs
}

// pool aggregates the per-driver inputs shared by every slot of the pass.
type pool struct {
	drivers     []models.Driver
	preferences map[uuid.UUID]*models.DriverPreference
	eligible    map[uuid.UUID]bool
	completion  map[uuid.UUID]float64
	attendance  map[uuid.UUID]float64
}

func (s *service) loadPool(ctx context.Context, orgID uuid.UUID) (*pool, error) {
	drivers, err := s.repo.ListActiveDrivers(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drivers")
	}
	preferences, err := s.repo.ListPreferences(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list preferences")
	}
	states, err := s.repo.ListHealthStates(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list health states")
	}
	metrics, err := s.repo.ListMetrics(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list metrics")
	}

	p := &pool{
		drivers:     drivers,
		preferences: make(map[uuid.UUID]*models.DriverPreference, len(preferences)),
		eligible:    make(map[uuid.UUID]bool, len(states)),
		completion:  make(map[uuid.UUID]float64, len(metrics)),
		attendance:  make(map[uuid.UUID]float64, len(metrics)),
	}
	for i := range preferences {
		p.preferences[preferences[i].DriverID] = &preferences[i]
	}
	for _, state := range states {
		p.eligible[state.DriverID] = state.PoolEligible
	}
	for _, m := range metrics {
		p.completion[m.DriverID], _ = m.CompletionRate.Float64()
		p.attendance[m.DriverID], _ = m.AttendanceRate.Float64()
	}
	return p, nil
}

// poolEligible defaults to true for drivers with no health row yet: a fresh
// driver starts eligible at the initial score.
func (p *pool) poolEligible(driverID uuid.UUID) bool {
	eligible, ok := p.eligible[driverID]
	if !ok {
		return true
	}
	return eligible
}

// pickCandidate filters the pool to drivers preferring this weekday and
// route, then ranks with strict tie-breaks: route completions, completion
// rate, attendance rate, driver id for determinism.
func (s *service) pickCandidate(p *pool, route models.Route, date time.Time, completions map[uuid.UUID]int, used map[uuid.UUID]int, busy map[dayKey]bool) *models.Driver {
	var candidates []candidate
	for i := range p.drivers {
		driver := &p.drivers[i]
		preference := p.preferences[driver.ID]
		if preference == nil {
			continue
		}
		if !preference.PrefersWeekday(date.Weekday()) || !preference.PrefersRoute(route.ID) {
			continue
		}
		if driver.Flagged || !p.poolEligible(driver.ID) {
			continue
		}
		if used[driver.ID] >= driver.WeeklyCap {
			continue
		}
		if busy[dayKey{driver.ID, date}] {
			continue
		}
		candidates = append(candidates, candidate{
			driver:           driver,
			routeCompletions: completions[driver.ID],
			completionRate:   p.completion[driver.ID],
			attendanceRate:   p.attendance[driver.ID],
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.routeCompletions != b.routeCompletions {
			return a.routeCompletions > b.routeCompletions
		}
		if a.completionRate != b.completionRate {
			return a.completionRate > b.completionRate
		}
		if a.attendanceRate != b.attendanceRate {
			return a.attendanceRate > b.attendanceRate
		}
		return a.driver.ID.String() < b.driver.ID.String()
	})
	return candidates[0].driver
}

func (s *service) createSlot(ctx context.Context, orgID, routeID uuid.UUID, date time.Time, winner *models.Driver) error {
	assignment := models.Assignment{
		OrgID:      orgID,
		RouteID:    routeID,
		Date:       date,
		Status:     enums.AssignmentUnfilled,
		AssignedBy: enums.AssignedBySchedule,
	}
	if winner != nil {
		assignment.DriverID = &winner.ID
		assignment.Status = enums.AssignmentScheduled
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateAssignment(ctx, &assignment)
		return err
	})
}

// notifyScheduled tells every driver who picked up new slots that their week
// is locked. The week-start dedup suffix keeps re-runs quiet.
func (s *service) notifyScheduled(ctx context.Context, orgID uuid.UUID, weekStart time.Time, newlyAssigned map[uuid.UUID]int, used map[uuid.UUID]int) error {
	if len(newlyAssigned) == 0 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for driverID := range newlyAssigned {
			intent := outbox.Intent{
				Type:          enums.NotificationScheduleLocked,
				AggregateType: enums.AggregateDriver,
				AggregateID:   driverID,
				RecipientID:   driverID,
				OrgID:         orgID,
				DedupSuffix:   weekStart.Format("2006-01-02"),
				OccurredAt:    weekStart,
				Data: payloads.ScheduleLockedData{
					WeekStart:       weekStart,
					AssignmentCount: used[driverID],
				},
			}
			if err := s.outbox.Emit(ctx, tx, intent); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue schedule locked intent")
			}
		}
		return nil
	})
}

type slotKey struct {
	routeID uuid.UUID
	date    time.Time
}

type dayKey struct {
	driverID uuid.UUID
	date     time.Time
}

func dayOf(t time.Time) time.Time {
	return truncateToDay(t)
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
