// Package customers holds the per-phone-number customer profile, the typed
// update allow-list, and the Store implementations that persist both the
// profile and the rolling conversation history.
package customers

import "time"

// Customer lifecycle statuses.
const (
	StatusNewLead     = "neuer Interessent"
	StatusNameKnown   = "Name bekannt"
	StatusTrialBooked = "Probetraining gebucht"
	StatusMember      = "Mitglied"
)

// Profile is the structured record kept per phone number. Pointer fields are
// nil until the conversation supplies them. RequestedDate and RequestedTime
// hold the current, unconfirmed booking request only; they are overwritten
// as new values arrive and cleared once a booking succeeds.
type Profile struct {
	// ExternalCustomerID is set once the customer is a registered member in
	// the scheduling system. Its presence selects the member booking flow.
	ExternalCustomerID *int64  `json:"external_customer_id,omitempty"`
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	Email              *string `json:"email,omitempty"`
	RequestedDate      *string `json:"requested_date,omitempty"` // YYYY-MM-DD
	RequestedTime      *string `json:"requested_time,omitempty"` // HH:MM
	LastBookingID      *string `json:"last_booking_id,omitempty"`
	Status             string  `json:"status"`

	// Qualification fields, filled by the model over time. The booking
	// engine never touches them.
	FitnessGoal       *string `json:"fitness_goal,omitempty"`
	FitnessLevel      *string `json:"fitness_level,omitempty"`
	TrainingFrequency *string `json:"training_frequency,omitempty"`

	LastContact time.Time `json:"last_contact"`
}

// NewProfile returns the default profile for a first contact.
func NewProfile() Profile {
	return Profile{Status: StatusNewLead}
}

// HasIdentity reports whether first name, last name and email are all known.
func (p Profile) HasIdentity() bool {
	return p.FirstName != nil && p.LastName != nil && p.Email != nil
}

// HasPartialDatetime reports whether a requested date or time is stored.
func (p Profile) HasPartialDatetime() bool {
	return p.RequestedDate != nil || p.RequestedTime != nil
}

// IsMember reports whether the customer is registered in the scheduling
// system.
func (p Profile) IsMember() bool {
	return p.ExternalCustomerID != nil
}

// MissingIdentityFields lists the German labels of the lead fields still
// needed for a trial-offer booking, in asking order.
func (p Profile) MissingIdentityFields() []string {
	var missing []string
	if p.FirstName == nil {
		missing = append(missing, "Vorname")
	}
	if p.LastName == nil {
		missing = append(missing, "Nachname")
	}
	if p.Email == nil {
		missing = append(missing, "E-Mail-Adresse")
	}
	return missing
}

// Turn is one half of a conversation exchange kept in the rolling history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Update is the explicit allow-list of profile fields a caller may change.
// Nil fields are ignored; there is no way to express an unknown field, so
// schema drift fails at compile time instead of being silently dropped.
type Update struct {
	ExternalCustomerID *int64
	FirstName          *string
	LastName           *string
	Email              *string
	RequestedDate      *string
	RequestedTime      *string
	LastBookingID      *string
	Status             *string
	FitnessGoal        *string
	FitnessLevel       *string
	TrainingFrequency  *string

	// ClearRequested resets RequestedDate and RequestedTime. Set after a
	// successful booking so stale request data cannot trigger a rebooking.
	ClearRequested bool
}

// IsZero reports whether the update would change nothing.
func (u Update) IsZero() bool {
	return u == Update{}
}

// apply writes the non-nil update fields onto the profile.
func (p *Profile) apply(u Update) {
	if u.ClearRequested {
		p.RequestedDate = nil
		p.RequestedTime = nil
	}
	if u.ExternalCustomerID != nil {
		p.ExternalCustomerID = u.ExternalCustomerID
	}
	if u.FirstName != nil {
		p.FirstName = u.FirstName
	}
	if u.LastName != nil {
		p.LastName = u.LastName
	}
	if u.Email != nil {
		p.Email = u.Email
	}
	if u.RequestedDate != nil {
		p.RequestedDate = u.RequestedDate
	}
	if u.RequestedTime != nil {
		p.RequestedTime = u.RequestedTime
	}
	if u.LastBookingID != nil {
		p.LastBookingID = u.LastBookingID
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.FitnessGoal != nil {
		p.FitnessGoal = u.FitnessGoal
	}
	if u.FitnessLevel != nil {
		p.FitnessLevel = u.FitnessLevel
	}
	if u.TrainingFrequency != nil {
		p.TrainingFrequency = u.TrainingFrequency
	}
}
