package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"casebridge/internal/models"
)

var ErrCaseNotFound = errors.New("case not found")

// CaseRepository abstracts case persistence. It doubles as the case
// access authority: IsParticipant is consulted on every message
// operation and must reflect the current lawyer assignment.
type CaseRepository interface {
	CreateCase(ctx context.Context, clientID int, caseType, title, description, priority string) (models.Case, error)
	GetCase(ctx context.Context, caseID int) (models.Case, error)
	ListCasesForUser(ctx context.Context, userID int) ([]models.Case, error)
	IsParticipant(ctx context.Context, caseID int, userID int) (bool, error)
	UpdateStatus(ctx context.Context, caseID int, status string) error
	AssignLawyer(ctx context.Context, caseID int, lawyerID int) error
	AddRemark(ctx context.Context, caseID int, userID int, text string) (models.Remark, error)
}

// CaseRepo is a sqlx implementation of CaseRepository.
type CaseRepo struct {
	db *sqlx.DB
}

// NewCaseRepo constructs a CaseRepo.
func NewCaseRepo(db *sqlx.DB) *CaseRepo {
	return &CaseRepo{db: db}
}

const caseColumns = `id, case_number, case_type, title, description, client_id, lawyer_id, status, priority, created_at, updated_at`

// CreateCase inserts a new case with its case number derived from the
// pre-allocated id (CB<year><5-digit sequence>). The id comes straight
// from the sequence so the unique case_number column is written exactly
// once; concurrent creates never touch each other's index entries.
func (r *CaseRepo) CreateCase(ctx context.Context, clientID int, caseType, title, description, priority string) (models.Case, error) {
	var id int
	if err := r.db.GetContext(ctx, &id,
		`SELECT nextval(pg_get_serial_sequence('cases', 'id'))`); err != nil {
		return models.Case{}, err
	}

	caseNumber := fmt.Sprintf("CB%d%05d", time.Now().Year(), id)
	var c models.Case
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO cases (id, case_number, case_type, title, description, client_id, priority)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+caseColumns,
		id, caseNumber, caseType, title, description, clientID, priority).StructScan(&c)
	if err != nil {
		return models.Case{}, err
	}
	return c, nil
}

// GetCase fetches a case by id.
func (r *CaseRepo) GetCase(ctx context.Context, caseID int) (models.Case, error) {
	var c models.Case
	err := r.db.GetContext(ctx, &c, `SELECT `+caseColumns+` FROM cases WHERE id=$1`, caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Case{}, ErrCaseNotFound
	}
	return c, err
}

// ListCasesForUser returns cases where the user is client or lawyer,
// newest first.
func (r *CaseRepo) ListCasesForUser(ctx context.Context, userID int) ([]models.Case, error) {
	var cases []models.Case
	err := r.db.SelectContext(ctx, &cases,
		`SELECT `+caseColumns+` FROM cases WHERE client_id=$1 OR lawyer_id=$1 ORDER BY created_at DESC`, userID)
	return cases, err
}

// IsParticipant checks whether the user is the case's client or its
// currently assigned lawyer.
func (r *CaseRepo) IsParticipant(ctx context.Context, caseID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM cases WHERE id=$1 AND (client_id=$2 OR lawyer_id=$2))`, caseID, userID)
	return exists, err
}

// UpdateStatus transitions the case to the given status.
func (r *CaseRepo) UpdateStatus(ctx context.Context, caseID int, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases SET status=$1, updated_at=NOW() WHERE id=$2`, status, caseID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// AssignLawyer routes the case to a lawyer and moves it under review.
func (r *CaseRepo) AssignLawyer(ctx context.Context, caseID int, lawyerID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases SET lawyer_id=$1, status=$2, updated_at=NOW() WHERE id=$3`,
		lawyerID, models.CaseStatusUnderReview, caseID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// AddRemark appends a remark to the case.
func (r *CaseRepo) AddRemark(ctx context.Context, caseID int, userID int, text string) (models.Remark, error) {
	var remark models.Remark
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO case_remarks (case_id, text, added_by) VALUES ($1, $2, $3)
         RETURNING id, case_id, text, added_by, added_at`,
		caseID, text, userID).StructScan(&remark)
	return remark, err
}
