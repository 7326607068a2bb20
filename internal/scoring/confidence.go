package scoring

import (
	"math"
	"time"

	"github.com/stepfree/stepfree/internal/obstacle"
)

// Freshness buckets the average age of the obstacle data.
type Freshness string

const (
	FreshnessHigh   Freshness = "high"
	FreshnessMedium Freshness = "medium"
	FreshnessLow    Freshness = "low"
)

// VerificationStatus buckets the verified fraction of the obstacle set.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationEstimated  VerificationStatus = "estimated"
	VerificationUnverified VerificationStatus = "unverified"
)

// Confidence estimates how trustworthy a route's accessibility score
// is, independently of the score itself.
type Confidence struct {
	Overall             float64 // 0-100
	DataFreshness       Freshness
	CommunityValidation int // total vote count
	VerificationStatus  VerificationStatus
	LastVerified        *time.Time
}

// Freshness age thresholds.
const (
	freshAgeHigh   = 7 * 24 * time.Hour
	freshAgeMedium = 30 * 24 * time.Hour
)

// Contribution weights for the overall confidence sum.
const (
	freshnessHighPoints   = 40
	freshnessMediumPoints = 25
	freshnessLowPoints    = 10

	verifiedPoints   = 30
	estimatedPoints  = 18
	unverifiedPoints = 8

	votePointsCap    = 15
	densityPointsCap = 10
)

// Estimator computes route confidence. The clock is injectable so the
// freshness buckets are testable with a fixed "now".
type Estimator struct {
	now func() time.Time
}

// NewEstimator creates an estimator. A nil clock uses time.Now.
func NewEstimator(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now}
}

// Estimate computes confidence for an obstacle set.
//
// An obstacle-free route gets medium freshness and no validation
// contributions: "no obstacles" is a weaker signal than positively
// verified ones.
func (e *Estimator) Estimate(obstacles []*obstacle.Obstacle) Confidence {
	if len(obstacles) == 0 {
		return Confidence{
			Overall:            freshnessMediumPoints + estimatedPoints,
			DataFreshness:      FreshnessMedium,
			VerificationStatus: VerificationEstimated,
		}
	}

	now := e.now()

	var (
		totalAge     time.Duration
		totalVotes   int
		verified     int
		lastVerified *time.Time
	)
	for _, o := range obstacles {
		totalAge += o.Age(now)
		totalVotes += o.Upvotes + o.Downvotes
		if o.Verified {
			verified++
			if lastVerified == nil || o.ReportedAt.After(*lastVerified) {
				ts := o.ReportedAt
				lastVerified = &ts
			}
		}
	}

	freshness := freshnessBucket(totalAge / time.Duration(len(obstacles)))
	status := verificationBucket(float64(verified) / float64(len(obstacles)))

	overall := freshnessPoints(freshness) + verificationPoints(status)
	overall += math.Min(float64(totalVotes), votePointsCap)
	overall += math.Min(float64(len(obstacles))*2, densityPointsCap)

	return Confidence{
		Overall:             math.Min(overall, 100),
		DataFreshness:       freshness,
		CommunityValidation: totalVotes,
		VerificationStatus:  status,
		LastVerified:        lastVerified,
	}
}

func freshnessBucket(avgAge time.Duration) Freshness {
	switch {
	case avgAge <= freshAgeHigh:
		return FreshnessHigh
	case avgAge <= freshAgeMedium:
		return FreshnessMedium
	default:
		return FreshnessLow
	}
}

func verificationBucket(ratio float64) VerificationStatus {
	switch {
	case ratio >= 0.6:
		return VerificationVerified
	case ratio >= 0.25:
		return VerificationEstimated
	default:
		return VerificationUnverified
	}
}

func freshnessPoints(f Freshness) float64 {
	switch f {
	case FreshnessHigh:
		return freshnessHighPoints
	case FreshnessMedium:
		return freshnessMediumPoints
	default:
		return freshnessLowPoints
	}
}

func verificationPoints(v VerificationStatus) float64 {
	switch v {
	case VerificationVerified:
		return verifiedPoints
	case VerificationEstimated:
		return estimatedPoints
	default:
		return unverifiedPoints
	}
}
