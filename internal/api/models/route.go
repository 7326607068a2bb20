package models

// RouteComputeRequest is the body of POST /v1/routes:compute.
type RouteComputeRequest struct {
	Origin      *Point `json:"origin"`
	Destination *Point `json:"destination"`

	// DeviceType selects the mobility profile: wheelchair, walker,
	// crutches, cane or none.
	DeviceType string `json:"deviceType"`

	// MaxAlternatives caps the number of provider candidates (default 2).
	MaxAlternatives int `json:"maxAlternatives,omitempty"`

	// RefineSidewalk enables the opposite-side crossing refinement on
	// the accessible route.
	RefineSidewalk bool `json:"refineSidewalk,omitempty"`
}

// RouteComputeResponse is the result of a route computation.
type RouteComputeResponse struct {
	GeneratedAt Timestamp       `json:"generatedAt"`
	Fastest     RouteOption     `json:"fastest"`
	Accessible  RouteOption     `json:"accessible"`
	Comparison  RouteComparison `json:"comparison"`
}

// RouteOption is one selected route with its accessibility assessment.
type RouteOption struct {
	ID                     string          `json:"id"`
	Geometry               [][2]float64    `json:"geometry"` // [lat, lon] pairs
	DistanceMeters         int             `json:"distanceMeters"`
	DurationSeconds        int             `json:"durationSeconds"`
	Summary                string          `json:"summary,omitempty"`
	Synthetic              bool            `json:"synthetic,omitempty"`
	AccessibilityOptimized bool            `json:"accessibilityOptimized,omitempty"`
	Score                  RouteScore      `json:"score"`
	Confidence             RouteConfidence `json:"confidence"`

	// Recommendation categorizes the overall score: excellent, good,
	// acceptable, difficult or avoid.
	Recommendation string `json:"recommendation"`

	Obstacles []ObstacleModel `json:"obstacles"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// RouteScore is the 0-100 multi-criteria accessibility score.
type RouteScore struct {
	Traversability         float64 `json:"traversability"`
	Safety                 float64 `json:"safety"`
	Comfort                float64 `json:"comfort"`
	Overall                float64 `json:"overall"`
	Grade                  string  `json:"grade"` // A-F
	UserSpecificAdjustment float64 `json:"userSpecificAdjustment"`
	Degraded               bool    `json:"degraded,omitempty"`
}

// RouteConfidence describes how much the score can be trusted.
type RouteConfidence struct {
	Overall             float64    `json:"overall"`
	DataFreshness       string     `json:"dataFreshness"`
	CommunityValidation int        `json:"communityValidation"`
	VerificationStatus  string     `json:"verificationStatus"`
	LastVerified        *Timestamp `json:"lastVerified,omitempty"`
}

// RouteComparison summarizes the fastest vs accessible trade-off.
type RouteComparison struct {
	TimeDeltaSeconds  int    `json:"timeDeltaSeconds"`
	GradeGap          int    `json:"gradeGap"`
	BlockingOnFastest bool   `json:"blockingOnFastest"`
	Recommendation    string `json:"recommendation"`
}
