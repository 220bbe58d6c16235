package bidding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

// InstantCutoff is the time-to-shift at or under which a new window opens in
// instant mode instead of competitive.
const InstantCutoff = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

type healthApplier interface {
	ApplyEvent(ctx context.Context, tx *gorm.DB, input health.ApplyEventInput) (*models.DriverHealthState, error)
}

// Service runs the three-mode bidding market: window creation, bid intake,
// first-accept claims and the competitive close sweep.
type Service interface {
	OpenWindow(ctx context.Context, tx *gorm.DB, input OpenWindowInput) (*models.BidWindow, error)
	ForceOpenWindow(ctx context.Context, input OpenWindowInput) (*models.BidWindow, error)
	PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error)
	AcceptClaim(ctx context.Context, input ClaimInput) (*models.Assignment, error)
	CloseBidWindows(ctx context.Context, orgID uuid.UUID, now time.Time) error
}

// OpenWindowInput describes the slot being put on the market.
type OpenWindowInput struct {
	OrgID           uuid.UUID
	AssignmentID    uuid.UUID
	Trigger         enums.BidTrigger
	PayBonusPercent decimal.Decimal
}

// PlaceBidInput is one driver's competitive bid.
type PlaceBidInput struct {
	OrgID    uuid.UUID
	DriverID uuid.UUID
	WindowID uuid.UUID
}

// ClaimInput is a first-accept attempt on an instant or emergency window.
type ClaimInput struct {
	OrgID    uuid.UUID
	DriverID uuid.UUID
	WindowID uuid.UUID
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	health healthApplier
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the bidding engine dependencies.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, healthSvc healthApplier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if healthSvc == nil {
		return nil, fmt.Errorf("health service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		health: healthSvc,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// OpenWindow creates the window inside the caller's transaction. Mode is
// chosen from time-to-shift, except no-show and manual triggers which always
// open emergency. An already-open window for the assignment is returned
// as-is with no new fan-out.
func (s *service) OpenWindow(ctx context.Context, tx *gorm.DB, input OpenWindowInput) (*models.BidWindow, error) {
	if input.OrgID == uuid.Nil || input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and assignment ids required")
	}
	if !input.Trigger.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown bid trigger")
	}

	repo := s.repo.WithTx(tx)
	assignment, err := repo.GetAssignment(ctx, input.OrgID, input.AssignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	switch assignment.Status {
	case enums.AssignmentCancelled, enums.AssignmentUnfilled:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not open for bidding")
	}

	if existing, err := repo.GetOpenWindowByAssignment(ctx, input.OrgID, input.AssignmentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open window")
	} else if existing != nil {
		return existing, nil
	}

	route, err := repo.GetRoute(ctx, input.OrgID, assignment.RouteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	if route == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
	}

	now := s.now().UTC()
	startAt := route.StartAt(assignment.Date)
	mode, closesAt := windowModeFor(input.Trigger, startAt, now)

	window := &models.BidWindow{
		OrgID:           input.OrgID,
		AssignmentID:    assignment.ID,
		Mode:            mode,
		Trigger:         input.Trigger,
		Status:          enums.BidWindowOpen,
		ClosesAt:        closesAt,
		PayBonusPercent: input.PayBonusPercent,
	}
	inserted, err := repo.CreateWindow(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid window")
	}
	if !inserted {
		existing, err := repo.GetOpenWindowByAssignment(ctx, input.OrgID, input.AssignmentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload open window")
		}
		return existing, nil
	}

	if err := s.fanOut(ctx, tx, repo, window, assignment, now); err != nil {
		return nil, err
	}
	return window, nil
}

// windowModeFor applies the mode rule: no-show and manual triggers force
// emergency; otherwise more than 24h to shift start opens competitive
// (closing 24h before start), else instant (closing at start).
func windowModeFor(trigger enums.BidTrigger, startAt, now time.Time) (enums.BidMode, time.Time) {
	if trigger == enums.BidTriggerNoShow || trigger == enums.BidTriggerManual {
		return enums.BidModeEmergency, startAt
	}
	if startAt.Sub(now) > InstantCutoff {
		return enums.BidModeCompetitive, startAt.Add(-InstantCutoff)
	}
	return enums.BidModeInstant, startAt
}

// ForceOpenWindow is the manager override entry point. It runs the same
// primitive in its own transaction and never applies driver penalties.
func (s *service) ForceOpenWindow(ctx context.Context, input OpenWindowInput) (*models.BidWindow, error) {
	var window *models.BidWindow
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		opened, err := s.OpenWindow(ctx, tx, input)
		if err != nil {
			return err
		}
		window = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

func (s *service) fanOut(ctx context.Context, tx *gorm.DB, repo Repository, window *models.BidWindow, assignment *models.Assignment, now time.Time) error {
	recipients, err := repo.ListEligibleDriverIDs(ctx, window.OrgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible drivers")
	}
	for _, driverID := range recipients {
		if assignment.DriverID != nil && driverID == *assignment.DriverID {
			continue
		}
		intent := outbox.Intent{
			AggregateType: enums.AggregateBidWindow,
			AggregateID:   window.ID,
			RecipientID:   driverID,
			OrgID:         window.OrgID,
			OccurredAt:    now,
		}
		if window.Mode == enums.BidModeEmergency {
			intent.Type = enums.NotificationEmergencyRoute
			intent.Data = payloads.EmergencyRouteData{
				WindowID:        window.ID,
				RouteID:         assignment.RouteID,
				Date:            assignment.Date,
				PayBonusPercent: window.PayBonusPercent,
			}
		} else {
			intent.Type = enums.NotificationBidOpen
			intent.Data = payloads.BidOpenData{
				WindowID:        window.ID,
				AssignmentID:    assignment.ID,
				RouteID:         assignment.RouteID,
				Date:            assignment.Date,
				Mode:            window.Mode,
				ClosesAt:        window.ClosesAt,
				PayBonusPercent: window.PayBonusPercent,
			}
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue bid open intent")
		}
	}
	return nil
}

// PlaceBid records one competitive bid. One bid per (window, driver).
func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error) {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil || input.WindowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org, driver and window ids required")
	}

	var bid *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		window, err := repo.GetWindow(ctx, input.OrgID, input.WindowID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load window")
		}
		if window == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "bid window not found")
		}
		if window.Status != enums.BidWindowOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid window is not open")
		}
		if window.Mode != enums.BidModeCompetitive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "window accepts claims, not bids")
		}
		if !now.Before(window.ClosesAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid window already closed")
		}

		if err := s.checkDriverEligible(ctx, repo, input.OrgID, input.DriverID); err != nil {
			return err
		}

		candidate := &models.Bid{
			OrgID:    input.OrgID,
			WindowID: window.ID,
			DriverID: input.DriverID,
			Status:   enums.BidPending,
			BidAt:    now,
		}
		inserted, err := repo.CreateBid(ctx, candidate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
		}
		if !inserted {
			return pkgerrors.New(pkgerrors.CodeConflict, "driver already bid on this window")
		}
		bid = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// AcceptClaim is the first-accept path for instant and emergency windows.
// The window CAS plus the driver/date unique index make exactly one of N
// concurrent claims stick; every other claimant sees a clean conflict.
func (s *service) AcceptClaim(ctx context.Context, input ClaimInput) (*models.Assignment, error) {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil || input.WindowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org, driver and window ids required")
	}

	var claimed *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		window, err := repo.GetWindow(ctx, input.OrgID, input.WindowID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load window")
		}
		if window == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "bid window not found")
		}
		if window.Status != enums.BidWindowOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid window is not open")
		}
		if !window.Mode.FirstAccept() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "window resolves by bidding, not claims")
		}
		if !now.Before(window.ClosesAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid window already closed")
		}

		if err := s.checkDriverEligible(ctx, repo, input.OrgID, input.DriverID); err != nil {
			return err
		}

		assignment, err := repo.GetAssignment(ctx, input.OrgID, window.AssignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if assignment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}

		conflicted, err := repo.HasLiveAssignmentOnDate(ctx, input.OrgID, input.DriverID, assignment.Date)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check date conflict")
		}
		if conflicted {
			return pkgerrors.New(pkgerrors.CodeConflict, "driver already assigned that date")
		}

		won, err := repo.ClaimWindow(ctx, input.OrgID, window.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim window")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "window already claimed")
		}

		if err := s.assignWinner(ctx, repo, assignment, input.DriverID, now); err != nil {
			return err
		}

		if err := s.recordClaimBid(ctx, repo, window, input.DriverID, now); err != nil {
			return err
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        input.OrgID,
			DriverID:     input.DriverID,
			Type:         enums.HealthUrgentWin,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationBidWon,
			AggregateType: enums.AggregateBidWindow,
			AggregateID:   window.ID,
			RecipientID:   input.DriverID,
			OrgID:         input.OrgID,
			OccurredAt:    now,
			Data: payloads.BidWonData{
				WindowID:     window.ID,
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue bid won intent")
		}

		claimed = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// CloseBidWindows is the periodic resolution sweep: competitive windows past
// closes_at are scored and resolved, open first-accept windows past their
// close surface a manager alert. Per-window failures never abort the batch.
func (s *service) CloseBidWindows(ctx context.Context, orgID uuid.UUID, now time.Time) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	now = now.UTC()

	var errs error

	competitive, err := s.repo.ListDueWindows(ctx, orgID,
		[]enums.BidMode{enums.BidModeCompetitive}, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due competitive windows")
	}
	for _, window := range competitive {
		window := window
		if err := s.resolveCompetitive(ctx, &window, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("window %s: %w", window.ID, err))
		}
	}

	firstAccept, err := s.repo.ListDueWindows(ctx, orgID,
		[]enums.BidMode{enums.BidModeInstant, enums.BidModeEmergency}, now)
	if err != nil {
		return multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due first-accept windows"))
	}
	for _, window := range firstAccept {
		window := window
		if err := s.closeUnresolved(ctx, &window, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("window %s: %w", window.ID, err))
		}
	}
	return errs
}

// scoredBid pairs one pending bid with its computed score.
type scoredBid struct {
	bid   models.Bid
	score float64
}

func (s *service) resolveCompetitive(ctx context.Context, window *models.BidWindow, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetWindow(ctx, window.OrgID, window.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != enums.BidWindowOpen || current.Mode != enums.BidModeCompetitive {
			return nil
		}

		assignment, err := repo.GetAssignment(ctx, current.OrgID, current.AssignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		route, err := repo.GetRoute(ctx, current.OrgID, assignment.RouteID)
		if err != nil {
			return err
		}
		if route == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
		}

		bids, err := repo.ListPendingBids(ctx, current.OrgID, current.ID)
		if err != nil {
			return err
		}
		if len(bids) == 0 {
			return s.convertToInstant(ctx, repo, current, route, assignment)
		}

		ranked, err := s.rankBids(ctx, repo, current, assignment, route, bids, now)
		if err != nil {
			return err
		}

		var winner *scoredBid
		var skipped []scoredBid
		for i := range ranked {
			entry := ranked[i]
			conflicted, err := repo.HasLiveAssignmentOnDate(ctx, current.OrgID, entry.bid.DriverID, assignment.Date)
			if err != nil {
				return err
			}
			if conflicted {
				skipped = append(skipped, entry)
				continue
			}
			winner = &ranked[i]
			break
		}

		if winner == nil {
			// every bidder held a same-day assignment
			for _, entry := range ranked {
				if err := s.settleBid(ctx, repo, entry, enums.BidLost); err != nil {
					return err
				}
			}
			return s.convertToInstant(ctx, repo, current, route, assignment)
		}

		if err := s.assignWinner(ctx, repo, assignment, winner.bid.DriverID, now); err != nil {
			return err
		}
		current.Status = enums.BidWindowResolved
		stamp := now
		current.ResolvedAt = &stamp
		if err := repo.SaveWindow(ctx, current); err != nil {
			return err
		}

		for _, entry := range ranked {
			status := enums.BidLost
			if entry.bid.ID == winner.bid.ID {
				status = enums.BidWon
			}
			if err := s.settleBid(ctx, repo, entry, status); err != nil {
				return err
			}
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        current.OrgID,
			DriverID:     winner.bid.DriverID,
			Type:         enums.HealthCompetitiveWin,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		for _, entry := range ranked {
			intent := outbox.Intent{
				AggregateType: enums.AggregateBidWindow,
				AggregateID:   current.ID,
				RecipientID:   entry.bid.DriverID,
				OrgID:         current.OrgID,
				OccurredAt:    now,
			}
			if entry.bid.ID == winner.bid.ID {
				intent.Type = enums.NotificationBidWon
				intent.Data = payloads.BidWonData{
					WindowID:     current.ID,
					AssignmentID: assignment.ID,
					RouteID:      assignment.RouteID,
					Date:         assignment.Date,
					Score:        entry.score,
				}
			} else {
				intent.Type = enums.NotificationBidLost
				intent.Data = payloads.BidLostData{
					WindowID:     current.ID,
					AssignmentID: assignment.ID,
					Date:         assignment.Date,
				}
			}
			if err := s.outbox.Emit(ctx, tx, intent); err != nil {
				return err
			}
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"window_id": current.ID.String(),
			"driver_id": winner.bid.DriverID.String(),
			"score":     winner.score,
			"skipped":   len(skipped),
		})
		s.logg.Info(logCtx, "competitive window resolved")
		return nil
	})
}

// rankBids scores every pending bid and orders them best-first. Ties break
// on higher score, then earlier bid.
func (s *service) rankBids(ctx context.Context, repo Repository, window *models.BidWindow, assignment *models.Assignment, route *models.Route, bids []models.Bid, now time.Time) ([]scoredBid, error) {
	ranked := make([]scoredBid, 0, len(bids))
	for _, bid := range bids {
		driver, err := repo.GetDriver(ctx, window.OrgID, bid.DriverID)
		if err != nil {
			return nil, err
		}
		if driver == nil {
			continue
		}
		state, err := repo.GetHealthState(ctx, window.OrgID, bid.DriverID)
		if err != nil {
			return nil, err
		}
		healthScore := health.InitialScore
		if state != nil {
			healthScore = state.Score
		}
		completions, err := repo.CountRouteCompletions(ctx, window.OrgID, bid.DriverID, route.ID)
		if err != nil {
			return nil, err
		}
		preference, err := repo.GetPreference(ctx, window.OrgID, bid.DriverID)
		if err != nil {
			return nil, err
		}
		preferred := preference != nil && preference.PrefersRoute(route.ID)

		ranked = append(ranked, scoredBid{
			bid: bid,
			score: ScoreBid(ScoreInputs{
				HealthScore:      healthScore,
				RouteCompletions: completions,
				TenureMonths:     driver.TenureMonths(now),
				PreferredRoute:   preferred,
			}),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].bid.BidAt.Before(ranked[j].bid.BidAt)
	})
	return ranked, nil
}

func (s *service) settleBid(ctx context.Context, repo Repository, entry scoredBid, status enums.BidStatus) error {
	bid := entry.bid
	score := entry.score
	bid.Score = &score
	bid.Status = status
	return repo.SaveBid(ctx, &bid)
}

// convertToInstant reopens a dead-ended competitive window as first-accept
// closing at the route start.
func (s *service) convertToInstant(ctx context.Context, repo Repository, window *models.BidWindow, route *models.Route, assignment *models.Assignment) error {
	window.Mode = enums.BidModeInstant
	window.ClosesAt = route.StartAt(assignment.Date)
	if err := repo.SaveWindow(ctx, window); err != nil {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"window_id": window.ID.String(),
		"closes_at": window.ClosesAt,
	})
	s.logg.Info(logCtx, "competitive window converted to instant")
	return nil
}

// closeUnresolved closes an unclaimed first-accept window and alerts the
// org's managers. No further escalation.
func (s *service) closeUnresolved(ctx context.Context, window *models.BidWindow, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetWindow(ctx, window.OrgID, window.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != enums.BidWindowOpen {
			return nil
		}

		assignment, err := repo.GetAssignment(ctx, current.OrgID, current.AssignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}

		current.Status = enums.BidWindowClosed
		if err := repo.SaveWindow(ctx, current); err != nil {
			return err
		}

		bids, err := repo.ListPendingBids(ctx, current.OrgID, current.ID)
		if err != nil {
			return err
		}
		for _, bid := range bids {
			bid := bid
			bid.Status = enums.BidLost
			if err := repo.SaveBid(ctx, &bid); err != nil {
				return err
			}
		}

		intent := outbox.Intent{
			Type:          enums.NotificationWindowUnresolved,
			AggregateType: enums.AggregateBidWindow,
			AggregateID:   current.ID,
			RecipientID:   current.OrgID,
			OrgID:         current.OrgID,
			OccurredAt:    now,
			Data: payloads.WindowUnresolvedData{
				WindowID:     current.ID,
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
				Mode:         current.Mode,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return err
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"window_id": current.ID.String(),
			"mode":      current.Mode,
		})
		s.logg.Warn(logCtx, "bid window closed unresolved")
		return nil
	})
}

// assignWinner moves the slot onto the driver in one write. The partial
// driver/date unique index backs the same-day invariant even under races.
func (s *service) assignWinner(ctx context.Context, repo Repository, assignment *models.Assignment, driverID uuid.UUID, now time.Time) error {
	assignment.DriverID = &driverID
	assignment.Status = enums.AssignmentConfirmed
	stamp := now
	assignment.ConfirmedAt = &stamp
	assignment.AssignedBy = enums.AssignedByBid
	assignment.CancelledAt = nil
	assignment.CancelType = nil
	assignment.Version++
	return repo.SaveAssignment(ctx, assignment)
}

// recordClaimBid persists the winning claim as a won bid row; a leftover
// pending bid from a converted competitive phase is promoted instead.
func (s *service) recordClaimBid(ctx context.Context, repo Repository, window *models.BidWindow, driverID uuid.UUID, now time.Time) error {
	claim := &models.Bid{
		OrgID:    window.OrgID,
		WindowID: window.ID,
		DriverID: driverID,
		Status:   enums.BidWon,
		BidAt:    now,
	}
	inserted, err := repo.CreateBid(ctx, claim)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record claim")
	}
	if inserted {
		return nil
	}
	bids, err := repo.ListPendingBids(ctx, window.OrgID, window.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload bids")
	}
	for _, bid := range bids {
		if bid.DriverID == driverID {
			bid := bid
			bid.Status = enums.BidWon
			bid.BidAt = now
			return repo.SaveBid(ctx, &bid)
		}
	}
	return nil
}

func (s *service) checkDriverEligible(ctx context.Context, repo Repository, orgID, driverID uuid.UUID) error {
	driver, err := repo.GetDriver(ctx, orgID, driverID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if driver == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
	}
	if !driver.Active {
		return pkgerrors.New(pkgerrors.CodePolicyDenied, "driver is deactivated")
	}
	if driver.Flagged {
		return pkgerrors.New(pkgerrors.CodePolicyDenied, "driver is flagged")
	}
	state, err := repo.GetHealthState(ctx, orgID, driverID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load health state")
	}
	if state != nil && !state.PoolEligible {
		return pkgerrors.New(pkgerrors.CodePolicyDenied, "driver is not pool eligible")
	}
	return nil
}
