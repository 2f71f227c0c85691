// Package staffing handles job applications and the staff records created
// when an admin approves one.
package staffing

import (
	"regexp"
	"strings"
	"time"

	"github.com/Nagulan13/oboma/internal/apperr"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"

	StaffActive     = "active"
	StaffTerminated = "terminated"
)

type Applicant struct {
	Name     string `json:"name"`
	ICNumber string `json:"icNumber"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type Application struct {
	ID          string `json:"applicationId"`
	ApplicantID string `json:"applicantId"`
	Applicant
	Status      string     `json:"jobStatus"`
	Remarks     string     `json:"remarks,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
}

type Staff struct {
	ID            string `json:"staffId"`
	ApplicationID string `json:"applicationId,omitempty"`
	Applicant
	Status            string     `json:"status"`
	AppointedDate     time.Time  `json:"appointedDate"`
	TerminationReason string     `json:"terminationReason,omitempty"`
	TerminatedAt      *time.Time `json:"terminatedAt,omitempty"`
}

func ApplicationPath(id string) string { return "jobApplications/" + id }
func StaffPath(id string) string       { return "staff/" + id }

var (
	icPattern    = regexp.MustCompile(`^\d{12}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10,11}$`)
)

// Normalize trims every field and drops the dashes people type into IC and
// phone numbers.
func (a Applicant) Normalize() Applicant {
	strip := strings.NewReplacer("-", "", " ", "")
	return Applicant{
		Name:     strings.TrimSpace(a.Name),
		ICNumber: strip.Replace(a.ICNumber),
		Email:    strings.TrimSpace(a.Email),
		Phone:    strip.Replace(a.Phone),
		Address:  strings.TrimSpace(a.Address),
	}
}

// Validate returns a ValidationError naming the first bad field.
func (a Applicant) Validate() error {
	switch {
	case a.Name == "":
		return apperr.Invalid("name", "is required")
	case a.ICNumber == "":
		return apperr.Invalid("icNumber", "is required")
	case !icPattern.MatchString(a.ICNumber):
		return apperr.Invalid("icNumber", "must be 12 digits")
	case a.Email == "":
		return apperr.Invalid("email", "is required")
	case !emailPattern.MatchString(a.Email):
		return apperr.Invalid("email", "invalid email format")
	case a.Phone == "":
		return apperr.Invalid("phone", "is required")
	case !phonePattern.MatchString(a.Phone):
		return apperr.Invalid("phone", "must be 10 or 11 digits")
	case a.Address == "":
		return apperr.Invalid("address", "is required")
	}
	return nil
}
