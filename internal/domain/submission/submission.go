package submission

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emotion-market/point-ledger/internal/domain/reward"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// DailyLimit is the number of approved submissions an account may make per calendar day.
const DailyLimit = 5

const (
	MinIntensity       = 1
	MaxIntensity       = 10
	MinBodyLength      = 10
	MaxBodyLength      = 500
	MaxTags            = 5
	MaxTagLength       = 20
	MaxReviewReasonLen = 500
)

var ErrQuotaExceeded = errors.New("daily submission limit reached")

// EmotionType is the category tag of a submission.
type EmotionType string

const (
	EmotionJoy      EmotionType = "JOY"
	EmotionSadness  EmotionType = "SADNESS"
	EmotionAnger    EmotionType = "ANGER"
	EmotionFear     EmotionType = "FEAR"
	EmotionSurprise EmotionType = "SURPRISE"
	EmotionDisgust  EmotionType = "DISGUST"
	EmotionPeace    EmotionType = "PEACE"
	EmotionLove     EmotionType = "LOVE"
)

var emotionTypes = map[EmotionType]struct{}{
	EmotionJoy: {}, EmotionSadness: {}, EmotionAnger: {}, EmotionFear: {},
	EmotionSurprise: {}, EmotionDisgust: {}, EmotionPeace: {}, EmotionLove: {},
}

func (e EmotionType) Valid() bool {
	_, ok := emotionTypes[e]
	return ok
}

// Location is where the author felt the emotion. Optional.
type Location string

const (
	LocationHome           Location = "HOME"
	LocationOffice         Location = "OFFICE"
	LocationSchool         Location = "SCHOOL"
	LocationCafe           Location = "CAFE"
	LocationRestaurant     Location = "RESTAURANT"
	LocationTransportation Location = "TRANSPORTATION"
	LocationOutdoors       Location = "OUTDOORS"
	LocationOther          Location = "OTHER"
)

var locations = map[Location]struct{}{
	LocationHome: {}, LocationOffice: {}, LocationSchool: {}, LocationCafe: {},
	LocationRestaurant: {}, LocationTransportation: {}, LocationOutdoors: {}, LocationOther: {},
}

func (l Location) Valid() bool {
	_, ok := locations[l]
	return ok
}

// Status is the review state of a submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Draft is an incoming submission before it is accepted.
type Draft struct {
	AccountID   uuid.UUID
	EmotionType EmotionType
	Intensity   int
	Body        string
	Location    Location
	Tags        []string
	Permissions reward.Permissions
}

// Validate checks the structural bounds of a draft. Content policy is applied upstream.
func (d Draft) Validate() error {
	if !d.EmotionType.Valid() {
		return shared.NewInvalidInput("emotion_type", fmt.Sprintf("unknown emotion type %q", d.EmotionType))
	}
	if d.Intensity < MinIntensity || d.Intensity > MaxIntensity {
		return shared.NewInvalidInput("intensity", fmt.Sprintf("must be between %d and %d", MinIntensity, MaxIntensity))
	}
	bodyLen := utf8.RuneCountInString(strings.TrimSpace(d.Body))
	if bodyLen < MinBodyLength || bodyLen > MaxBodyLength {
		return shared.NewInvalidInput("body", fmt.Sprintf("must be between %d and %d characters", MinBodyLength, MaxBodyLength))
	}
	if d.Location != "" && !d.Location.Valid() {
		return shared.NewInvalidInput("location", fmt.Sprintf("unknown location %q", d.Location))
	}
	if len(d.Tags) > MaxTags {
		return shared.NewInvalidInput("tags", fmt.Sprintf("at most %d tags", MaxTags))
	}
	for _, tag := range d.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			return shared.NewInvalidInput("tags", "tags must not be blank")
		}
		if utf8.RuneCountInString(trimmed) > MaxTagLength {
			return shared.NewInvalidInput("tags", fmt.Sprintf("tag %q exceeds %d characters", trimmed, MaxTagLength))
		}
	}
	return nil
}

// Submission is an accepted emotion entry and the reward it earned.
type Submission struct {
	ID            uuid.UUID          `json:"id"`
	AccountID     uuid.UUID          `json:"account_id"`
	EmotionType   EmotionType        `json:"emotion_type"`
	Intensity     int                `json:"intensity"`
	Body          string             `json:"body"`
	Location      Location           `json:"location,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	PointsAwarded int64              `json:"points_awarded"`
	Reward        reward.Breakdown   `json:"reward"`
	Permissions   reward.Permissions `json:"permissions"`
	Status        Status             `json:"status"`
	ReviewedBy    string             `json:"reviewed_by,omitempty"`
	ReviewReason  string             `json:"review_reason,omitempty"`
	ReviewedAt    *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// New builds an approved submission from a validated draft and its award.
func New(d Draft, award reward.Breakdown, now time.Time) Submission {
	tags := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		tags = append(tags, strings.TrimSpace(tag))
	}

	return Submission{
		ID:            uuid.New(),
		AccountID:     d.AccountID,
		EmotionType:   d.EmotionType,
		Intensity:     d.Intensity,
		Body:          d.Body,
		Location:      d.Location,
		Tags:          tags,
		PointsAwarded: award.Total,
		Reward:        award,
		Permissions:   d.Permissions,
		Status:        StatusApproved,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AwardReproducible reports whether PointsAwarded still matches the calculator.
func (s Submission) AwardReproducible() bool {
	return reward.Compute(s.Body, s.Permissions).Total == s.PointsAwarded
}

// Reject moves an approved submission to rejected. The caller owes a clawback of PointsAwarded.
func (s Submission) Reject(reviewer, reason string, now time.Time) (Submission, error) {
	if err := validateReview(reviewer, reason); err != nil {
		return s, err
	}
	if s.Status != StatusApproved {
		return s, ErrInvalidTransition{SubmissionID: s.ID, From: s.Status, To: StatusRejected}
	}
	return s.reviewed(StatusRejected, reviewer, reason, now), nil
}

// Approve moves a pending submission to approved. It has no ledger effect.
func (s Submission) Approve(reviewer string, now time.Time) (Submission, error) {
	if err := validateReview(reviewer, ""); err != nil {
		return s, err
	}
	if s.Status != StatusPending {
		return s, ErrInvalidTransition{SubmissionID: s.ID, From: s.Status, To: StatusApproved}
	}
	return s.reviewed(StatusApproved, reviewer, "", now), nil
}

func (s Submission) reviewed(status Status, reviewer, reason string, now time.Time) Submission {
	s.Status = status
	s.ReviewedBy = strings.TrimSpace(reviewer)
	s.ReviewReason = strings.TrimSpace(reason)
	s.ReviewedAt = &now
	s.UpdatedAt = now
	return s
}

func validateReview(reviewer, reason string) error {
	if strings.TrimSpace(reviewer) == "" {
		return shared.NewInvalidInput("reviewer", "must not be blank")
	}
	if utf8.RuneCountInString(reason) > MaxReviewReasonLen {
		return shared.NewInvalidInput("reason", fmt.Sprintf("must be at most %d characters", MaxReviewReasonLen))
	}
	return nil
}
