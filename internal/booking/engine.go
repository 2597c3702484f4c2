// Package booking runs the multi-step slot reservation protocol against the
// scheduling provider, for both registered customers and new trial-offer
// leads.
package booking

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/easyfitness/trainerbot/internal/magicline"
	"github.com/easyfitness/trainerbot/internal/observability/metrics"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

const (
	statusAvailable = "AVAILABLE"

	maxAlternatives = 3
	// Suggested times closer than this to one another are redundant.
	alternativeSpreadMinutes = 60
)

// API is the subset of the scheduling provider the engine needs.
type API interface {
	ValidateSlot(ctx context.Context, customerID int64, startDateTime string, durationMinutes int) magicline.ValidationResult
	BookAppointment(ctx context.Context, customerID int64, startDateTime string, durationMinutes int) magicline.BookingResult
	AvailableSlots(ctx context.Context, date string, durationMinutes int) magicline.SlotsResult
	ValidateLead(ctx context.Context, firstName, lastName, email string) magicline.CallResult
	CreateLead(ctx context.Context, firstName, lastName, email string) magicline.LeadResult
	ValidateAppointmentForLead(ctx context.Context, leadCustomerID int64, startDateTime string, durationMinutes int) magicline.ValidationResult
	BookAppointmentForLead(ctx context.Context, leadCustomerID int64, startDateTime string, durationMinutes int) magicline.BookingResult
}

// Attempt is the outcome of one booking attempt. Message is customer-facing
// German text, ready to send.
type Attempt struct {
	Success   bool
	Message   string
	BookingID string
}

// Engine coordinates the reservation flows.
type Engine struct {
	api      API
	duration int
	logger   *logging.Logger
	metrics  *metrics.BotMetrics
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithMetrics attaches booking attempt counters.
func WithMetrics(m *metrics.BotMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a booking engine. durationMinutes is the trial session
// length; values <= 0 fall back to 30.
func NewEngine(api API, durationMinutes int, logger *logging.Logger, opts ...Option) *Engine {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	e := &Engine{
		api:      api,
		duration: durationMinutes,
		logger:   logger.Component("booking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func outcomeLabel(a Attempt) string {
	if a.Success {
		return "booked"
	}
	return "failed"
}

// TryBook validates and books a slot for a registered customer.
func (e *Engine) TryBook(ctx context.Context, customerID int64, startDateTime string) Attempt {
	attempt := e.tryBook(ctx, customerID, startDateTime)
	e.metrics.ObserveBookingAttempt("member", outcomeLabel(attempt))
	return attempt
}

func (e *Engine) tryBook(ctx context.Context, customerID int64, startDateTime string) Attempt {
	validation := e.api.ValidateSlot(ctx, customerID, startDateTime, e.duration)
	switch {
	case validation.NetworkErr:
		return Attempt{Message: msgNetworkError}
	case validation.HTTPStatus >= 500:
		return Attempt{Message: msgServerError}
	case validation.Status != statusAvailable:
		return Attempt{Message: msgSlotUnavailable}
	}

	booking := e.api.BookAppointment(ctx, customerID, startDateTime, e.duration)
	switch {
	case booking.NetworkErr:
		return Attempt{Message: msgNetworkError}
	case booking.HTTPStatus >= 500:
		return Attempt{Message: msgServerError}
	case !booking.Success:
		return Attempt{Message: msgGenericError}
	}

	e.logger.Info("appointment booked", "customer_id", customerID, "booking_id", booking.BookingID)
	return Attempt{Success: true, Message: msgSuccess, BookingID: booking.BookingID}
}

// TryBookTrialOffer runs the new-lead flow: availability pre-check, lead
// validation, lead creation, slot validation and booking. The pre-check keeps
// unavailable slots from producing orphaned leads; a pre-check API failure
// falls through to the four-step flow, which validates again anyway.
func (e *Engine) TryBookTrialOffer(ctx context.Context, firstName, lastName, email, startDateTime string) Attempt {
	attempt := e.tryBookTrialOffer(ctx, firstName, lastName, email, startDateTime)
	e.metrics.ObserveBookingAttempt("trial", outcomeLabel(attempt))
	return attempt
}

func (e *Engine) tryBookTrialOffer(ctx context.Context, firstName, lastName, email, startDateTime string) Attempt {
	check := e.checkSlotAvailability(ctx, startDateTime)
	if check.apiError {
		e.logger.Warn("availability pre-check failed, continuing without it", "start", startDateTime)
	} else if !check.available {
		if len(check.alternatives) > 0 {
			return Attempt{Message: alternativesMessage(check.alternatives)}
		}
		return Attempt{Message: msgSlotUnavailable}
	}

	validation := e.api.ValidateLead(ctx, firstName, lastName, email)
	if !validation.Success {
		return Attempt{Message: leadFailureMessage(validation, msgValidationFailed)}
	}

	creation := e.api.CreateLead(ctx, firstName, lastName, email)
	if !creation.Success {
		return Attempt{Message: leadFailureMessage(creation.CallResult, msgLeadCreationFailed)}
	}
	if creation.LeadCustomerID == 0 {
		e.logger.Warn("lead created without id")
		return Attempt{Message: msgLeadCreationFailed}
	}

	slotValidation := e.api.ValidateAppointmentForLead(ctx, creation.LeadCustomerID, startDateTime, e.duration)
	if !slotValidation.Success || slotValidation.Status != statusAvailable {
		return Attempt{Message: msgSlotUnavailable}
	}

	booking := e.api.BookAppointmentForLead(ctx, creation.LeadCustomerID, startDateTime, e.duration)
	if !booking.Success {
		return Attempt{Message: msgGenericError}
	}

	e.logger.Info("trial offer booked",
		"lead_customer_id", creation.LeadCustomerID,
		"booking_id", booking.BookingID,
	)
	return Attempt{Success: true, Message: msgSuccess, BookingID: booking.BookingID}
}

func leadFailureMessage(result magicline.CallResult, clientErrMsg string) string {
	switch {
	case result.NetworkErr:
		return msgNetworkError
	case result.HTTPStatus >= 500:
		return msgServerError
	default:
		return clientErrMsg
	}
}

type availability struct {
	available    bool
	alternatives []string
	apiError     bool
}

func (e *Engine) checkSlotAvailability(ctx context.Context, startDateTime string) availability {
	date := datePart(startDateTime)
	target := timePart(startDateTime)
	if date == "" || target == "" {
		return availability{apiError: true}
	}

	slots := e.api.AvailableSlots(ctx, date, e.duration)
	if !slots.Success {
		return availability{apiError: true}
	}
	if len(slots.Slots) == 0 {
		return availability{}
	}

	for _, slot := range slots.Slots {
		if timePart(slot.Begin()) == target {
			return availability{available: true}
		}
	}
	return availability{alternatives: alternativeTimes(target, slots.Slots)}
}

// alternativeTimes suggests up to maxAlternatives free times near the
// requested one. Candidates are ranked by distance; a candidate within an
// hour of one already suggested is skipped so the suggestions cover the day
// instead of clustering around a single gap.
func alternativeTimes(target string, slots []magicline.Slot) []string {
	targetMin, ok := timeToMinutes(target)
	if !ok {
		return nil
	}

	type candidate struct {
		time     string
		minutes  int
		distance int
	}
	candidates := make([]candidate, 0, len(slots))
	for _, slot := range slots {
		t := timePart(slot.Begin())
		minutes, ok := timeToMinutes(t)
		if !ok {
			continue
		}
		distance := minutes - targetMin
		if distance < 0 {
			distance = -distance
		}
		candidates = append(candidates, candidate{time: t, minutes: minutes, distance: distance})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	var picked []candidate
	for _, c := range candidates {
		if len(picked) == maxAlternatives {
			break
		}
		tooClose := false
		for _, p := range picked {
			gap := c.minutes - p.minutes
			if gap < 0 {
				gap = -gap
			}
			if gap <= alternativeSpreadMinutes {
				tooClose = true
				break
			}
		}
		if !tooClose {
			picked = append(picked, c)
		}
	}

	times := make([]string, len(picked))
	for i, c := range picked {
		times[i] = c.time
	}
	return times
}

// datePart returns the YYYY-MM-DD prefix of an ISO datetime.
func datePart(isoDateTime string) string {
	if len(isoDateTime) < 10 {
		return ""
	}
	return isoDateTime[:10]
}

// timePart returns the HH:MM portion of an ISO datetime.
func timePart(isoDateTime string) string {
	_, rest, found := strings.Cut(isoDateTime, "T")
	if !found || len(rest) < 5 {
		return ""
	}
	return rest[:5]
}

func timeToMinutes(t string) (int, bool) {
	hh, mm, found := strings.Cut(t, ":")
	if !found {
		return 0, false
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	return hours*60 + minutes, true
}
