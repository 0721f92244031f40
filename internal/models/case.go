package models

import "time"

// Case statuses.
const (
	CaseStatusSubmitted   = "submitted"
	CaseStatusUnderReview = "under_review"
	CaseStatusInProgress  = "in_progress"
	CaseStatusClosed      = "closed"
)

// ValidCaseStatus reports whether s is a known case status.
func ValidCaseStatus(s string) bool {
	switch s {
	case CaseStatusSubmitted, CaseStatusUnderReview, CaseStatusInProgress, CaseStatusClosed:
		return true
	}
	return false
}

// Case is a legal engagement between one client and at most one lawyer.
// The lawyer reference stays NULL until the case is routed.
type Case struct {
	ID          int       `db:"id" json:"id"`
	CaseNumber  string    `db:"case_number" json:"case_number"`
	CaseType    string    `db:"case_type" json:"case_type"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ClientID    int       `db:"client_id" json:"client_id"`
	LawyerID    *int      `db:"lawyer_id" json:"lawyer_id"`
	Status      string    `db:"status" json:"status"`
	Priority    string    `db:"priority" json:"priority"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasLawyer reports whether the case has been routed to a lawyer.
// A case without a lawyer has no valid message room.
func (c Case) HasLawyer() bool {
	return c.LawyerID != nil
}

// IsParticipant reports whether userID is the case's client or its
// assigned lawyer.
func (c Case) IsParticipant(userID int) bool {
	return c.ClientID == userID || (c.LawyerID != nil && *c.LawyerID == userID)
}

// OtherParticipant returns the counterpart of userID on the case, or 0
// when userID is not a participant or no lawyer is assigned yet.
func (c Case) OtherParticipant(userID int) int {
	if c.LawyerID == nil {
		return 0
	}
	switch userID {
	case c.ClientID:
		return *c.LawyerID
	case *c.LawyerID:
		return c.ClientID
	}
	return 0
}

// Remark is a free-text note attached to a case by a participant.
type Remark struct {
	ID      int       `db:"id" json:"id"`
	CaseID  int       `db:"case_id" json:"case_id"`
	Text    string    `db:"text" json:"text"`
	AddedBy int       `db:"added_by" json:"added_by"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}
