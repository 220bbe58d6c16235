package health

import (
	"time"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Additive point model. The score floors at 0, ceilings at 100, and is
// capped at HardStopCap while a driver requires manager intervention.
const (
	PointsConfirmOnTime     = 1
	PointsArriveOnTime      = 2
	PointsCompleteShift     = 2
	PointsHighDelivery      = 1
	PointsCompetitiveBidWin = 2
	PointsUrgentBidWin      = 4
	PointsAutoDrop          = -12
	PointsDriverCancel      = -8
	PointsLateCancel        = -32

	ScoreFloor   = 0
	ScoreCeiling = 100
	HardStopCap  = 49

	InitialScore = 50
	MaxStars     = 4

	// HardStopWindow is the trailing period inspected for no-shows and
	// late cancellations.
	HardStopWindow = 30 * 24 * time.Hour

	// HardStopLateCancels is the trailing-window late-cancel count that
	// triggers a hard stop.
	HardStopLateCancels = 2

	// HighDeliveryThreshold is the delivery rate earning the bonus point.
	HighDeliveryThreshold = 0.95

	// QualifyingCompletionRate is the weekly completion floor for a
	// qualifying week.
	QualifyingCompletionRate = 0.95
)

var pointsByEvent = map[enums.HealthEventType]int{
	enums.HealthConfirmOnTime:  PointsConfirmOnTime,
	enums.HealthArriveOnTime:   PointsArriveOnTime,
	enums.HealthCompleteShift:  PointsCompleteShift,
	enums.HealthHighDelivery:   PointsHighDelivery,
	enums.HealthCompetitiveWin: PointsCompetitiveBidWin,
	enums.HealthUrgentWin:      PointsUrgentBidWin,
	enums.HealthAutoDrop:       PointsAutoDrop,
	enums.HealthDriverCancel:   PointsDriverCancel,
	enums.HealthLateCancel:     PointsLateCancel,
}

// PointsFor returns the score delta for a point-bearing event type.
// No-show and reinstatement are state transitions, not point deltas.
func PointsFor(eventType enums.HealthEventType) (int, bool) {
	delta, ok := pointsByEvent[eventType]
	return delta, ok
}

func clampScore(score int, hardStopped bool) int {
	ceiling := ScoreCeiling
	if hardStopped {
		ceiling = HardStopCap
	}
	if score < ScoreFloor {
		return ScoreFloor
	}
	if score > ceiling {
		return ceiling
	}
	return score
}
