package support

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/commtype/api/pkg/email"
	"github.com/commtype/api/pkg/ratelimit"
)

// TicketStore persists submitted tickets.
type TicketStore interface {
	CreateTicket(ctx context.Context, t Ticket) (uuid.UUID, error)
}

// Config carries intake knobs. The defaults match the public contact form:
// 3 submissions per 10 minutes per client address.
type Config struct {
	TeamEmail string `env:"SUPPORT_TEAM_EMAIL,required"`
}

// IntakeService validates and persists contact-form submissions.
// The ticket row is the authoritative success signal; the two notification
// emails are best effort.
type IntakeService struct {
	store   TicketStore
	limiter *ratelimit.Limiter
	sender  email.Sender
	cfg     Config
	log     *slog.Logger
}

func NewIntakeService(store TicketStore, limiter *ratelimit.Limiter, sender email.Sender, cfg Config, log *slog.Logger) *IntakeService {
	if store == nil {
		panic("support: ticket store is required")
	}
	if limiter == nil {
		panic("support: rate limiter is required")
	}
	if sender == nil {
		panic("support: email sender is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &IntakeService{store: store, limiter: limiter, sender: sender, cfg: cfg, log: log}
}

// Submit validates the request, applies the per-address limit, persists the
// ticket, and fires the notification emails. Validation failures come back
// as validator.ValidationErrors; a tripped limiter as ErrRateLimitExceeded.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest, clientIP, userAgent string) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	result, err := s.limiter.Allow(ctx, "support:"+clientIP)
	if err != nil {
		s.log.ErrorContext(ctx, "rate limiter failed", "error", err)
		return uuid.Nil, ErrSubmissionFailed
	}
	if !result.Allowed {
		s.log.InfoContext(ctx, "support submission rate limited",
			"client_ip", clientIP, "retry_after", result.RetryAfter())
		return uuid.Nil, ErrRateLimitExceeded
	}

	ticketID, err := s.store.CreateTicket(ctx, Ticket{
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Status:    StatusOpen,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to persist support ticket", "error", err)
		return uuid.Nil, ErrSubmissionFailed
	}

	s.sendNotifications(ctx, ticketID, req, clientIP, userAgent)

	s.log.InfoContext(ctx, "support ticket created",
		"ticket_id", ticketID, "subject", req.Subject)
	return ticketID, nil
}

// sendNotifications delivers the team alert and the submitter confirmation.
// Failures are logged; the ticket already exists.
func (s *IntakeService) sendNotifications(ctx context.Context, ticketID uuid.UUID, req SubmitRequest, clientIP, userAgent string) {
	data := emailData{
		TicketID:  ticketID.String(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}

	if body, err := renderTeamNotification(data); err != nil {
		s.log.ErrorContext(ctx, "failed to render team notification", "ticket_id", ticketID, "error", err)
	} else if err := s.sender.Send(ctx, email.SendParams{
		To:       s.cfg.TeamEmail,
		Subject:  fmt.Sprintf("[Support] %s: %s", req.Subject, req.Name),
		BodyHTML: body,
		Tag:      "support-team-notification",
	}); err != nil {
		s.log.ErrorContext(ctx, "failed to send team notification", "ticket_id", ticketID, "error", err)
	}

	if body, err := renderConfirmation(data); err != nil {
		s.log.ErrorContext(ctx, "failed to render confirmation", "ticket_id", ticketID, "error", err)
	} else if err := s.sender.Send(ctx, email.SendParams{
		To:       req.Email,
		Subject:  "We received your support request",
		BodyHTML: body,
		Tag:      "support-confirmation",
	}); err != nil {
		s.log.ErrorContext(ctx, "failed to send confirmation", "ticket_id", ticketID, "error", err)
	}
}
