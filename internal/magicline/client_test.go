package magicline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyfitness/trainerbot/pkg/logging"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:            srv.URL,
		APIKey:             "test-key",
		BookableID:         42,
		TrialOfferConfigID: 7,
	}, logging.New("error"))
}

func TestValidateSlot(t *testing.T) {
	var captured map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointments/bookable/validate", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"validationStatus":"AVAILABLE"}`))
	}))

	result := client.ValidateSlot(context.Background(), 123, "2025-06-10T14:00:00+02:00", 30)

	assert.True(t, result.Success)
	assert.Equal(t, "AVAILABLE", result.Status)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.False(t, result.NetworkErr)

	assert.Equal(t, float64(123), captured["customerId"])
	assert.Equal(t, float64(42), captured["bookableAppointmentId"])
	assert.Equal(t, "2025-06-10T14:00:00+02:00", captured["startDateTime"])
	assert.Equal(t, "2025-06-10T14:30:00+02:00", captured["endDateTime"])
}

func TestValidateSlotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, logging.New("error"))
	result := client.ValidateSlot(context.Background(), 123, "2025-06-10T14:00:00+02:00", 30)

	assert.False(t, result.Success)
	assert.True(t, result.NetworkErr)
	assert.Empty(t, result.Status)
}

func TestBookAppointment(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointments/booking/book", r.URL.Path)
		w.Write([]byte(`{"bookingId": 98765}`))
	}))

	result := client.BookAppointment(context.Background(), 123, "2025-06-10T14:00:00+02:00", 30)

	assert.True(t, result.Success)
	assert.Equal(t, "98765", result.BookingID)
}

func TestBookAppointmentRejected(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	result := client.BookAppointment(context.Background(), 123, "2025-06-10T14:00:00+02:00", 30)

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusConflict, result.HTTPStatus)
	assert.Empty(t, result.BookingID)
}

func TestAvailableSlotsFormats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "bare array",
			body: `[{"startDateTime":"2025-06-10T09:00:00+02:00"},{"startDateTime":"2025-06-10T10:00:00+02:00"}]`,
			want: []string{"2025-06-10T09:00:00+02:00", "2025-06-10T10:00:00+02:00"},
		},
		{
			name: "slots wrapper",
			body: `{"slots":[{"start":"2025-06-10T09:00:00+02:00"}]}`,
			want: []string{"2025-06-10T09:00:00+02:00"},
		},
		{
			name: "items wrapper",
			body: `{"items":[{"startTime":"2025-06-10T11:00:00+02:00"}]}`,
			want: []string{"2025-06-10T11:00:00+02:00"},
		},
		{
			name: "empty day",
			body: `[]`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/trial-offers/bookable-trial-offers/appointments/bookable/42/slots", r.URL.Path)
				assert.Equal(t, "2025-06-10", r.URL.Query().Get("date"))
				assert.Equal(t, "30", r.URL.Query().Get("duration"))
				w.Write([]byte(tt.body))
			}))

			result := client.AvailableSlots(context.Background(), "2025-06-10", 30)
			require.True(t, result.Success)

			var starts []string
			for _, slot := range result.Slots {
				starts = append(starts, slot.Begin())
			}
			assert.Equal(t, tt.want, starts)
		})
	}
}

func TestAvailableSlotsServerError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	result := client.AvailableSlots(context.Background(), "2025-06-10", 30)

	assert.False(t, result.Success)
	assert.False(t, result.NetworkErr)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus)
}

func TestValidateLeadPayload(t *testing.T) {
	var captured map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trial-offers/lead/validate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{}`))
	}))

	result := client.ValidateLead(context.Background(), "Max", "Mustermann", "max@example.de")
	require.True(t, result.Success)

	data, ok := captured["leadCustomerData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Max", data["firstname"])
	assert.Equal(t, "Mustermann", data["lastname"])
	assert.Equal(t, "max@example.de", data["email"])
	assert.Equal(t, float64(7), captured["trialOfferConfigId"])

	address, ok := data["address"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"street", "houseNumber", "zipCode", "city"} {
		value, present := address[field]
		assert.True(t, present, field)
		assert.Nil(t, value, field)
	}
}

func TestCreateLead(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trial-offers/lead/create", r.URL.Path)
		w.Write([]byte(`{"leadCustomerId": 55501}`))
	}))

	result := client.CreateLead(context.Background(), "Max", "Mustermann", "max@example.de")

	assert.True(t, result.Success)
	assert.Equal(t, int64(55501), result.LeadCustomerID)
}

func TestCreateLeadMissingID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	result := client.CreateLead(context.Background(), "Max", "Mustermann", "max@example.de")

	assert.True(t, result.Success)
	assert.Zero(t, result.LeadCustomerID)
}

func TestLeadFlowStatusCodes(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	validation := client.ValidateLead(context.Background(), "Max", "Mustermann", "max@example.de")
	assert.False(t, validation.Success)
	assert.Equal(t, http.StatusBadGateway, validation.HTTPStatus)

	creation := client.CreateLead(context.Background(), "Max", "Mustermann", "max@example.de")
	assert.False(t, creation.Success)
	assert.Equal(t, http.StatusBadGateway, creation.HTTPStatus)
}

func TestTrialOfferEndpoints(t *testing.T) {
	var paths []string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"validationStatus":"AVAILABLE","bookingId":1}`))
	}))

	ctx := context.Background()
	validation := client.ValidateAppointmentForLead(ctx, 55501, "2025-06-10T14:00:00+02:00", 30)
	assert.True(t, validation.Success)
	assert.Equal(t, "AVAILABLE", validation.Status)

	booking := client.BookAppointmentForLead(ctx, 55501, "2025-06-10T14:00:00+02:00", 30)
	assert.True(t, booking.Success)
	assert.Equal(t, "1", booking.BookingID)

	assert.Equal(t, []string{
		"/trial-offers/appointments/booking/validate",
		"/trial-offers/appointments/booking/book",
	}, paths)
}

func TestEndTime(t *testing.T) {
	tests := []struct {
		start    string
		duration int
		want     string
	}{
		{"2025-12-26T18:00:00+01:00", 30, "2025-12-26T18:30:00+01:00"},
		{"2025-06-10T14:00:00+02:00", 60, "2025-06-10T15:00:00+02:00"},
		{"2025-06-10T23:45:00+02:00", 30, "2025-06-11T00:15:00+02:00"},
		// No timezone suffix defaults to +01:00.
		{"2025-06-10T14:00:00", 30, "2025-06-10T14:30:00+01:00"},
		// Unparseable input passes through.
		{"morgen um 14 Uhr", 30, "morgen um 14 Uhr"},
		{"", 30, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EndTime(tt.start, tt.duration), tt.start)
	}
}
