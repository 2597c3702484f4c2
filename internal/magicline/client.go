// Package magicline is a typed client for the MagicLine studio management API.
// It covers slot validation and booking for registered customers plus the
// trial-offer lead flow for unregistered prospects.
package magicline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/easyfitness/trainerbot/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// Config holds the MagicLine connection settings.
type Config struct {
	BaseURL            string
	APIKey             string
	BookableID         int64
	TrialOfferConfigID int64
	Timeout            time.Duration
}

// Client calls the MagicLine REST API.
type Client struct {
	baseURL            string
	apiKey             string
	bookableID         int64
	trialOfferConfigID int64
	httpClient         *http.Client
	logger             *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a MagicLine API client.
func NewClient(cfg Config, logger *logging.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		bookableID:         cfg.BookableID,
		trialOfferConfigID: cfg.TrialOfferConfigID,
		httpClient:         &http.Client{Timeout: timeout},
		logger:             logger.Component("magicline"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallResult carries the transport-level outcome of an API call. Callers
// classify failures by HTTPStatus and NetworkErr instead of a Go error, so a
// booking flow can pick the right customer-facing message.
type CallResult struct {
	Success    bool
	HTTPStatus int
	NetworkErr bool
}

// ValidationResult is the outcome of a slot validation call.
type ValidationResult struct {
	CallResult
	Status string // validationStatus, e.g. "AVAILABLE"
}

// LeadResult is the outcome of creating a lead customer.
type LeadResult struct {
	CallResult
	LeadCustomerID int64
}

// BookingResult is the outcome of a booking call.
type BookingResult struct {
	CallResult
	BookingID string
}

// Slot is one bookable time slot. MagicLine is inconsistent about the field
// name across deployments, so all known variants are mapped.
type Slot struct {
	StartDateTime string `json:"startDateTime"`
	Start         string `json:"start"`
	StartTime     string `json:"startTime"`
}

// Begin returns the slot's start datetime, whichever field carried it.
func (s Slot) Begin() string {
	if s.StartDateTime != "" {
		return s.StartDateTime
	}
	if s.Start != "" {
		return s.Start
	}
	return s.StartTime
}

// SlotsResult is the outcome of a day-availability query.
type SlotsResult struct {
	CallResult
	Slots []Slot
}

// ValidateSlot checks whether an appointment slot is free for a registered
// customer.
func (c *Client) ValidateSlot(ctx context.Context, customerID int64, startDateTime string, durationMinutes int) ValidationResult {
	payload := c.appointmentPayload(customerID, startDateTime, durationMinutes)
	status, body, err := c.postJSON(ctx, "/appointments/bookable/validate", payload)
	return c.validationResult("validate slot", status, body, err)
}

// BookAppointment books a slot for a registered customer.
func (c *Client) BookAppointment(ctx context.Context, customerID int64, startDateTime string, durationMinutes int) BookingResult {
	payload := c.appointmentPayload(customerID, startDateTime, durationMinutes)
	status, body, err := c.postJSON(ctx, "/appointments/booking/book", payload)
	return c.bookingResult("book appointment", status, body, err)
}

// AvailableSlots lists the free trial-offer slots on a date (YYYY-MM-DD).
func (c *Client) AvailableSlots(ctx context.Context, date string, durationMinutes int) SlotsResult {
	path := fmt.Sprintf("/trial-offers/bookable-trial-offers/appointments/bookable/%d/slots", c.bookableID)
	query := url.Values{}
	query.Set("date", date)
	query.Set("duration", strconv.Itoa(durationMinutes))

	status, body, err := c.getJSON(ctx, path, query)
	if err != nil {
		c.logger.Warn("slot query failed", "date", date, "error", err)
		return SlotsResult{CallResult: CallResult{NetworkErr: true}}
	}
	if status != http.StatusOK {
		c.logger.Warn("slot query rejected", "date", date, "status", status)
		return SlotsResult{CallResult: CallResult{HTTPStatus: status}}
	}
	return SlotsResult{
		CallResult: CallResult{Success: true, HTTPStatus: status},
		Slots:      parseSlots(body),
	}
}

// ValidateLead validates lead customer data before creation.
func (c *Client) ValidateLead(ctx context.Context, firstName, lastName, email string) CallResult {
	payload := c.leadPayload(firstName, lastName, email)
	status, _, err := c.postJSON(ctx, "/trial-offers/lead/validate", payload)
	if err != nil {
		c.logger.Warn("lead validation failed", "error", err)
		return CallResult{NetworkErr: true}
	}
	if status != http.StatusOK {
		c.logger.Warn("lead validation rejected", "status", status)
		return CallResult{HTTPStatus: status}
	}
	return CallResult{Success: true, HTTPStatus: status}
}

// CreateLead creates a lead customer and returns its MagicLine ID.
func (c *Client) CreateLead(ctx context.Context, firstName, lastName, email string) LeadResult {
	payload := c.leadPayload(firstName, lastName, email)
	status, body, err := c.postJSON(ctx, "/trial-offers/lead/create", payload)
	if err != nil {
		c.logger.Warn("lead creation failed", "error", err)
		return LeadResult{CallResult: CallResult{NetworkErr: true}}
	}
	if status != http.StatusOK {
		c.logger.Warn("lead creation rejected", "status", status)
		return LeadResult{CallResult: CallResult{HTTPStatus: status}}
	}

	var resp struct {
		LeadCustomerID json.Number `json:"leadCustomerId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("lead creation response unreadable", "error", err)
		return LeadResult{CallResult: CallResult{HTTPStatus: status}}
	}
	id, _ := resp.LeadCustomerID.Int64()
	return LeadResult{
		CallResult:     CallResult{Success: true, HTTPStatus: status},
		LeadCustomerID: id,
	}
}

// ValidateAppointmentForLead validates a trial-offer slot for a lead customer.
// The trial-offer endpoint checks for conflicts; the plain bookable one does
// not.
func (c *Client) ValidateAppointmentForLead(ctx context.Context, leadCustomerID int64, startDateTime string, durationMinutes int) ValidationResult {
	payload := c.appointmentPayload(leadCustomerID, startDateTime, durationMinutes)
	status, body, err := c.postJSON(ctx, "/trial-offers/appointments/booking/validate", payload)
	return c.validationResult("validate lead appointment", status, body, err)
}

// BookAppointmentForLead books a trial-offer slot for a lead customer. The
// plain booking endpoint would allow double-booking.
func (c *Client) BookAppointmentForLead(ctx context.Context, leadCustomerID int64, startDateTime string, durationMinutes int) BookingResult {
	payload := c.appointmentPayload(leadCustomerID, startDateTime, durationMinutes)
	status, body, err := c.postJSON(ctx, "/trial-offers/appointments/booking/book", payload)
	return c.bookingResult("book lead appointment", status, body, err)
}

func (c *Client) appointmentPayload(customerID int64, startDateTime string, durationMinutes int) map[string]any {
	return map[string]any{
		"customerId":            customerID,
		"bookableAppointmentId": c.bookableID,
		"startDateTime":         startDateTime,
		"endDateTime":           EndTime(startDateTime, durationMinutes),
	}
}

func (c *Client) leadPayload(firstName, lastName, email string) map[string]any {
	return map[string]any{
		"leadCustomerData": map[string]any{
			"firstname": firstName,
			"lastname":  lastName,
			"email":     email,
			"address": map[string]any{
				"street":      nil,
				"houseNumber": nil,
				"zipCode":     nil,
				"city":        nil,
			},
		},
		"trialOfferConfigId": c.trialOfferConfigID,
	}
}

func (c *Client) validationResult(op string, status int, body []byte, err error) ValidationResult {
	if err != nil {
		c.logger.Warn(op+" failed", "error", err)
		return ValidationResult{CallResult: CallResult{NetworkErr: true}}
	}

	var resp struct {
		ValidationStatus string `json:"validationStatus"`
	}
	_ = json.Unmarshal(body, &resp)

	if status != http.StatusOK {
		c.logger.Warn(op+" rejected", "status", status)
		return ValidationResult{CallResult: CallResult{HTTPStatus: status}, Status: resp.ValidationStatus}
	}
	return ValidationResult{
		CallResult: CallResult{Success: true, HTTPStatus: status},
		Status:     resp.ValidationStatus,
	}
}

func (c *Client) bookingResult(op string, status int, body []byte, err error) BookingResult {
	if err != nil {
		c.logger.Warn(op+" failed", "error", err)
		return BookingResult{CallResult: CallResult{NetworkErr: true}}
	}
	if status != http.StatusOK {
		c.logger.Warn(op+" rejected", "status", status)
		return BookingResult{CallResult: CallResult{HTTPStatus: status}}
	}

	var resp struct {
		BookingID json.Number `json:"bookingId"`
	}
	_ = json.Unmarshal(body, &resp)
	return BookingResult{
		CallResult: CallResult{Success: true, HTTPStatus: status},
		BookingID:  resp.BookingID.String(),
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("magicline: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, nil, fmt.Errorf("magicline: create request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("magicline: create request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("magicline: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("magicline: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func parseSlots(body []byte) []Slot {
	var direct []Slot
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct
	}
	var wrapped struct {
		Slots []Slot `json:"slots"`
		Items []Slot `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if wrapped.Slots != nil {
			return wrapped.Slots
		}
		return wrapped.Items
	}
	return nil
}

var isoStartRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})([+-]\d{2}:\d{2})?`)

// EndTime computes the appointment end from an ISO start datetime and a
// duration in minutes, preserving the timezone suffix. An unparseable start is
// returned unchanged.
func EndTime(startDateTime string, durationMinutes int) string {
	match := isoStartRE.FindStringSubmatch(startDateTime)
	if match == nil {
		return startDateTime
	}

	start, err := time.Parse("2006-01-02T15:04:05", match[1])
	if err != nil {
		return startDateTime
	}
	tz := match[2]
	if tz == "" {
		tz = "+01:00"
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return end.Format("2006-01-02T15:04:05") + tz
}
