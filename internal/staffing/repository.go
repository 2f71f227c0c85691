package staffing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/db"
)

type Repository interface {
	CreateApplication(ctx context.Context, a Application) error
	GetApplication(ctx context.Context, id string) (Application, error)
	ListApplications(ctx context.Context, status string) ([]Application, error)
	// Approve marks a pending application approved and inserts the staff
	// record in one transaction. It reports false when the application was
	// no longer pending.
	Approve(ctx context.Context, applicationID, remarks string, s Staff) (bool, error)
	Reject(ctx context.Context, applicationID, remarks string, at time.Time) (bool, error)
	Terminate(ctx context.Context, staffID, reason string, at time.Time) (Staff, error)
	ListStaff(ctx context.Context) ([]Staff, error)
}

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	selectApplication = `SELECT id, applicant_id, name, ic_number, email, phone, address, job_status, remarks, submitted_at, decided_at FROM job_applications`
	staffColumns      = `id, application_id, name, ic_number, email, phone, address, status, appointed_date, termination_reason, terminated_at`
)

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.ApplicantID, &a.Name, &a.ICNumber, &a.Email, &a.Phone, &a.Address,
		&a.Status, &a.Remarks, &a.SubmittedAt, &a.DecidedAt)
	return a, err
}

func scanStaff(row pgx.Row) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.ApplicationID, &s.Name, &s.ICNumber, &s.Email, &s.Phone, &s.Address,
		&s.Status, &s.AppointedDate, &s.TerminationReason, &s.TerminatedAt)
	return s, err
}

func (r *PostgresRepository) CreateApplication(ctx context.Context, a Application) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO job_applications (id, applicant_id, name, ic_number, email, phone, address, job_status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.ApplicantID, a.Name, a.ICNumber, a.Email, a.Phone, a.Address, a.Status, a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert job application: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetApplication(ctx context.Context, id string) (Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, selectApplication+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, fmt.Errorf("job application %s: %w", id, apperr.ErrNotFound)
		}
		return Application{}, fmt.Errorf("select job application: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListApplications(ctx context.Context, status string) ([]Application, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.pool.Query(ctx, selectApplication+` ORDER BY submitted_at DESC`)
	} else {
		rows, err = r.pool.Query(ctx, selectApplication+` WHERE job_status=$1 ORDER BY submitted_at DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("select job applications: %w", err)
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Approve(ctx context.Context, applicationID, remarks string, s Staff) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE job_applications SET job_status=$2, remarks=$3, decided_at=$4
		WHERE id=$1 AND job_status='pending'
	`, applicationID, ApplicationApproved, remarks, s.AppointedDate)
	if err != nil {
		return false, fmt.Errorf("approve job application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `INSERT INTO staff (`+staffColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', NULL)`,
		s.ID, s.ApplicationID, s.Name, s.ICNumber, s.Email, s.Phone, s.Address, s.Status, s.AppointedDate)
	if err != nil {
		return false, fmt.Errorf("insert staff: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) Reject(ctx context.Context, applicationID, remarks string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_applications SET job_status=$2, remarks=$3, decided_at=$4
		WHERE id=$1 AND job_status='pending'
	`, applicationID, ApplicationRejected, remarks, at)
	if err != nil {
		return false, fmt.Errorf("reject job application: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) Terminate(ctx context.Context, staffID, reason string, at time.Time) (Staff, error) {
	s, err := scanStaff(r.pool.QueryRow(ctx, `
		UPDATE staff SET status=$2, termination_reason=$3, terminated_at=$4
		WHERE id=$1 AND status='active'
		RETURNING `+staffColumns, staffID, StaffTerminated, reason, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Staff{}, fmt.Errorf("active staff %s: %w", staffID, apperr.ErrNotFound)
		}
		return Staff{}, fmt.Errorf("terminate staff: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY appointed_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("select staff: %w", err)
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
