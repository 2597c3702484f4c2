package customers

import "github.com/easyfitness/trainerbot/internal/extraction"

// MergeExtraction computes the profile update implied by newly extracted
// values. New values win over stored ones; fields the extraction did not
// produce are left untouched, so a partial date or time persists until a
// later message completes the pair. The function is pure: applying the same
// extraction twice yields the same profile state.
func MergeExtraction(p Profile, r extraction.Result) Update {
	var u Update

	if r.FirstName != "" {
		u.FirstName = &r.FirstName
	}
	if r.LastName != "" {
		u.LastName = &r.LastName
	}
	if r.Email != "" {
		u.Email = &r.Email
	}
	if r.Date != "" {
		u.RequestedDate = &r.Date
	}
	if r.Time != "" {
		u.RequestedTime = &r.Time
	}

	// First name arriving on a brand-new lead advances the status
	if r.FirstName != "" && p.Status == StatusNewLead {
		status := StatusNameKnown
		u.Status = &status
	}

	return u
}
