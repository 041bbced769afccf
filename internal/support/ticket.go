// Package support handles contact-form intake: validation, per-address
// rate limiting, persistence, and the two notification emails.
package support

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commtype/api/pkg/validator"
)

var (
	ErrRateLimitExceeded = errors.New("too many support requests, try again later")
	ErrSubmissionFailed  = errors.New("failed to submit support request")
)

// Subject values accepted from the contact form.
const (
	SubjectGeneral   = "General Question"
	SubjectTechnical = "Technical Issue"
	SubjectBilling   = "Billing Question"
	SubjectFeedback  = "Feedback"
	SubjectOther     = "Other"
)

// Subjects lists the accepted form subjects in display order.
var Subjects = []string{
	SubjectGeneral,
	SubjectTechnical,
	SubjectBilling,
	SubjectFeedback,
	SubjectOther,
}

// TicketStatus is the lifecycle state of a ticket. Only open tickets are
// created here; resolution happens outside this service.
type TicketStatus string

const StatusOpen TicketStatus = "open"

// Ticket is one persisted contact-form submission.
type Ticket struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Subject   string
	Message   string
	ClientIP  string
	UserAgent string
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubmitRequest is the contact-form payload.
type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate applies the form rules and returns validator.ValidationErrors
// describing every violated field.
func (r SubmitRequest) Validate() error {
	return validator.Apply(
		validator.Required("name", r.Name),
		validator.MinLen("name", strings.TrimSpace(r.Name), 2),
		validator.MaxLen("name", r.Name, 100),
		validator.ValidEmail("email", r.Email),
		validator.InList("subject", r.Subject, Subjects),
		validator.MinLen("message", strings.TrimSpace(r.Message), 10),
		validator.MaxLen("message", r.Message, 1000),
	)
}
