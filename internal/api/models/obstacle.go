package models

// ObstacleModel is the API representation of a reported obstacle.
type ObstacleModel struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Location    Point      `json:"location"`
	Description string     `json:"description,omitempty"`
	ReportedAt  Timestamp  `json:"reportedAt"`
	Upvotes     int        `json:"upvotes"`
	Downvotes   int        `json:"downvotes"`
	Verified    bool       `json:"verified"`
	TimePattern *string    `json:"timePattern,omitempty"`
	Side        *SideModel `json:"side,omitempty"`
}

// SideModel carries side-of-street metadata.
type SideModel struct {
	Side           string `json:"side"` // left or right
	HasAlternative bool   `json:"hasAlternative"`
}

// ObstacleListResponse is the result of GET /v1/obstacles.
type ObstacleListResponse struct {
	Obstacles []ObstacleModel `json:"obstacles"`
	Count     int             `json:"count"`
}

// ObstacleReportRequest is the body of POST /v1/obstacles.
type ObstacleReportRequest struct {
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Location    *Point     `json:"location"`
	Description string     `json:"description,omitempty"`
	TimePattern *string    `json:"timePattern,omitempty"`
	Side        *SideModel `json:"side,omitempty"`
}

// ObstacleVoteRequest is the body of POST /v1/obstacles/{obstacleId}/votes.
type ObstacleVoteRequest struct {
	// Vote is "up" to confirm the obstacle or "down" to dispute it.
	Vote string `json:"vote"`
}
