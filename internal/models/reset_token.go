package models

import "time"

// ResetToken is persisted by hash; the raw token is only ever returned to
// the requester at issuance.
type ResetToken struct {
	TokenHash   string     `json:"tokenHash"`
	Subject     string     `json:"subject"`
	SubjectID   string     `json:"subjectId"`
	SubjectRole Role       `json:"subjectRole"`
	IssuedAt    time.Time  `json:"issuedAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Consumed    bool       `json:"consumed"`
	ConsumedAt  *time.Time `json:"consumedAt,omitempty"`
}

func (t ResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
