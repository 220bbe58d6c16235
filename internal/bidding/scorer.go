package bidding

// Competitive bid scoring weights. Health dominates, familiarity with the
// route matters more than tenure, and preference is a fixed bonus.
const (
	weightHealth      = 0.45
	weightFamiliarity = 0.25
	weightSeniority   = 0.15
	weightPreference  = 0.15

	healthCeiling       = 96.0
	familiarityCeiling  = 20.0
	seniorityCeilingMon = 12.0
)

// ScoreInputs are the per-driver factors entering one competitive bid score.
type ScoreInputs struct {
	HealthScore      int
	RouteCompletions int
	TenureMonths     int
	PreferredRoute   bool
}

// ScoreBid computes the weighted competitive score in [0, 1].
func ScoreBid(in ScoreInputs) float64 {
	health := clampRatio(float64(in.HealthScore) / healthCeiling)
	familiarity := clampRatio(float64(in.RouteCompletions) / familiarityCeiling)
	seniority := clampRatio(float64(in.TenureMonths) / seniorityCeilingMon)
	preference := 0.0
	if in.PreferredRoute {
		preference = 1.0
	}
	return weightHealth*health +
		weightFamiliarity*familiarity +
		weightSeniority*seniority +
		weightPreference*preference
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
