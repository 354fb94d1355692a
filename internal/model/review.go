package model

import "time"

type TargetType string

const (
	TargetUser    TargetType = "USER"
	TargetListing TargetType = "LISTING"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportResolved ReportStatus = "RESOLVED"
	ReportRejected ReportStatus = "REJECTED"
)

type Review struct {
	ID           string          `json:"id" bson:"_id"`
	BookingID    string          `json:"booking_id" bson:"booking_id"`
	ReviewerID   string          `json:"reviewer_id" bson:"reviewer_id"`
	ReviewerName string          `json:"reviewer_name,omitempty" bson:"reviewer_name,omitempty"`
	TargetID     string          `json:"target_id" bson:"target_id"`
	TargetType   TargetType      `json:"target_type" bson:"target_type"`
	Rating       int             `json:"rating" bson:"rating"`
	Comment      string          `json:"comment" bson:"comment"`
	Pros         []string        `json:"pros,omitempty" bson:"pros,omitempty"`
	Cons         []string        `json:"cons,omitempty" bson:"cons,omitempty"`
	Images       []string        `json:"images,omitempty" bson:"images,omitempty"`
	IsAnonymous  bool            `json:"is_anonymous" bson:"is_anonymous"`
	Verified     bool            `json:"verified" bson:"verified"`
	Helpful      int             `json:"helpful" bson:"helpful"`
	HelpfulBy    []string        `json:"-" bson:"helpful_by,omitempty"`
	Response     *ReviewResponse `json:"response,omitempty" bson:"response,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}

type ReviewResponse struct {
	ID          string    `json:"id" bson:"id"`
	ResponderID string    `json:"responder_id" bson:"responder_id"`
	Comment     string    `json:"comment" bson:"comment"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

type ReviewReport struct {
	ID          string       `json:"id" bson:"_id"`
	ReviewID    string       `json:"review_id" bson:"review_id"`
	ReporterID  string       `json:"reporter_id" bson:"reporter_id"`
	Reason      string       `json:"reason" bson:"reason"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Status      ReportStatus `json:"status" bson:"status"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	ResolvedBy  string       `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
}

// RatingStats aggregates a target's reviews. AverageRating is the
// age-weighted mean; TotalReviews of zero means no data, not a zero-star
// rating.
type RatingStats struct {
	TargetID           string      `json:"target_id"`
	TargetType         TargetType  `json:"target_type"`
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	Distribution       map[int]int `json:"distribution"`
	RecentTrend        float64     `json:"recent_trend"`
	VerifiedPercentage float64     `json:"verified_percentage"`
}

// ReviewQuery carries list filters parsed from query parameters.
type ReviewQuery struct {
	MinRating int
	HasImages bool
	Verified  bool
	SortBy    string // rating|helpful|date
	SortOrder string // asc|desc
	Page      int
	Limit     int
}
