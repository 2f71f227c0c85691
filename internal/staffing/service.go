package staffing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/settings"
)

// Mailer sends decision e-mails without blocking the caller.
type Mailer interface {
	ApplicationApproved(email, name string)
	ApplicationRejected(email, name string)
}

// VacancyGate reports whether applications are being accepted.
type VacancyGate interface {
	Get(ctx context.Context) (settings.JobVacancySetting, error)
}

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
}

type Service struct {
	repo     Repository
	vacancy  VacancyGate
	mailer   Mailer
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, vacancy VacancyGate, mailer Mailer, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		vacancy:  vacancy,
		mailer:   mailer,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit records a pending application while the vacancy is open.
func (s *Service) Submit(ctx context.Context, applicantID string, in Applicant) (Application, error) {
	if applicantID == "" {
		return Application{}, apperr.ErrUnauthenticated
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Application{}, err
	}

	vacancy, err := s.vacancy.Get(ctx)
	if err != nil {
		return Application{}, err
	}
	if !vacancy.JobVacancyOpen {
		return Application{}, apperr.Invalid("", "job applications are closed")
	}

	a := Application{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		Applicant:   in,
		Status:      ApplicationPending,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.repo.CreateApplication(ctx, a); err != nil {
		return Application{}, err
	}
	s.publish(ctx, ApplicationPath(a.ID), a)
	return a, nil
}

func (s *Service) ListApplications(ctx context.Context, status string) ([]Application, error) {
	return s.repo.ListApplications(ctx, status)
}

func (s *Service) ListStaff(ctx context.Context) ([]Staff, error) {
	return s.repo.ListStaff(ctx)
}

// Approve appoints the applicant as active staff and e-mails them.
func (s *Service) Approve(ctx context.Context, applicationID, remarks string) (Staff, error) {
	a, err := s.decidable(ctx, applicationID, remarks)
	if err != nil {
		return Staff{}, err
	}

	now := s.now().UTC()
	st := Staff{
		ID:            uuid.NewString(),
		ApplicationID: a.ID,
		Applicant:     a.Applicant,
		Status:        StaffActive,
		AppointedDate: now,
	}
	ok, err := s.repo.Approve(ctx, a.ID, strings.TrimSpace(remarks), st)
	if err != nil {
		return Staff{}, err
	}
	if !ok {
		return Staff{}, apperr.Invalid("applicationId", "application was already decided")
	}

	a.Status, a.Remarks, a.DecidedAt = ApplicationApproved, strings.TrimSpace(remarks), &now
	s.publish(ctx, ApplicationPath(a.ID), a)
	s.publish(ctx, StaffPath(st.ID), st)
	s.mailer.ApplicationApproved(a.Email, a.Name)
	s.logger.Info().Str("application_id", a.ID).Str("staff_id", st.ID).Msg("job application approved")
	return st, nil
}

// Reject closes the application and e-mails the applicant.
func (s *Service) Reject(ctx context.Context, applicationID, remarks string) (Application, error) {
	a, err := s.decidable(ctx, applicationID, remarks)
	if err != nil {
		return Application{}, err
	}

	now := s.now().UTC()
	ok, err := s.repo.Reject(ctx, a.ID, strings.TrimSpace(remarks), now)
	if err != nil {
		return Application{}, err
	}
	if !ok {
		return Application{}, apperr.Invalid("applicationId", "application was already decided")
	}

	a.Status, a.Remarks, a.DecidedAt = ApplicationRejected, strings.TrimSpace(remarks), &now
	s.publish(ctx, ApplicationPath(a.ID), a)
	s.mailer.ApplicationRejected(a.Email, a.Name)
	s.logger.Info().Str("application_id", a.ID).Msg("job application rejected")
	return a, nil
}

func (s *Service) Terminate(ctx context.Context, staffID, reason string) (Staff, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Staff{}, apperr.Invalid("reason", "is required")
	}
	st, err := s.repo.Terminate(ctx, staffID, reason, s.now().UTC())
	if err != nil {
		return Staff{}, err
	}
	s.publish(ctx, StaffPath(st.ID), st)
	s.logger.Info().Str("staff_id", st.ID).Msg("staff terminated")
	return st, nil
}

func (s *Service) decidable(ctx context.Context, applicationID, remarks string) (Application, error) {
	if strings.TrimSpace(remarks) == "" {
		return Application{}, apperr.Invalid("remarks", "is required")
	}
	a, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if a.Status != ApplicationPending {
		return Application{}, apperr.Invalid("applicationId", "application was already decided")
	}
	return a, nil
}

func (s *Service) publish(ctx context.Context, path string, doc any) {
	if err := s.notifier.Notify(ctx, path, doc); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("notify staffing change")
	}
}
