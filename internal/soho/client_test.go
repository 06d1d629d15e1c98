package soho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/poolside-scheduler/internal/booking"
)

var testSlot = time.Date(2026, 8, 5, 13, 30, 0, 0, time.UTC)

func testRequest() booking.Request {
	return booking.Request{
		VenueID:      "NY_POOLSIDE",
		Slot:         testSlot,
		PartySize:    2,
		PhoneCountry: "US",
		PhoneNumber:  "5551234567",
		GuestNotes:   "poolside please",
	}
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		IdentityURL: srv.URL,
		TablesURL:   srv.URL,
		ClientID:    "client-1",
	})
}

func TestRefresh(t *testing.T) {
	var gotBody refreshRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "Bearer",
			"created_at":    time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC).Unix(),
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	s, err := newTestClient(srv).Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)

	assert.Equal(t, refreshRequest{ClientID: "client-1", GrantType: "refresh_token", RefreshToken: "old-refresh"}, gotBody)
	assert.Equal(t, "new-access", s.AccessToken)
	assert.Equal(t, "new-refresh", s.RefreshToken)
	assert.Equal(t, time.Hour, s.ExpiresAt.Sub(s.IssuedAt))
}

func TestRefreshDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Minimal response: no rotated refresh token, no expires_in.
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-access"})
	}))
	defer srv.Close()

	s, err := newTestClient(srv).Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", s.RefreshToken, "refresh token is kept when the response omits a replacement")
	assert.Equal(t, 2*time.Hour, s.ExpiresAt.Sub(s.IssuedAt))
}

func TestRefreshClassification(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var ae *booking.AuthError
			assert.ErrorAs(t, err, &ae)
		}},
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var ae *booking.AuthError
			assert.ErrorAs(t, err, &ae)
		}},
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var te *booking.TransientError
			assert.ErrorAs(t, err, &te)
		}},
		{http.StatusBadGateway, func(t *testing.T, err error) {
			var te *booking.TransientError
			assert.ErrorAs(t, err, &te)
		}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"errors":[{"detail":"nope"}]}`)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Refresh(context.Background(), "r")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestRefreshUndecodable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Refresh(context.Background(), "r")
	var fe *booking.FatalError
	assert.ErrorAs(t, err, &fe)
}

func TestBookTwoStepFlow(t *testing.T) {
	var lockBody lockRequest
	var bookBody bookingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "DigitalHouse")
		switch r.URL.Path {
		case "/tables/locks":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lockBody))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data":{"id":"lock-9","attributes":{"token":"lt"}}}`)
		case "/tables/table_bookings":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&bookBody))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data":{"id":"bk-42","attributes":{"state":"booked"}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	conf, err := newTestClient(srv).Book(context.Background(), "tok", testRequest())
	require.NoError(t, err)

	assert.Equal(t, "bk-42", conf.ReservationID)
	assert.Equal(t, "NY_POOLSIDE", conf.VenueID)
	assert.Equal(t, "booked", conf.State)

	assert.Equal(t, "table_locks", lockBody.Data.Type)
	assert.Equal(t, 2, lockBody.Data.Attributes.PartySize)
	assert.Equal(t, "2026-08-05T13:30", lockBody.Data.Attributes.DateTime)
	assert.Equal(t, "NY_POOLSIDE", lockBody.Data.Relationships.Restaurant.Data.ID)

	assert.Equal(t, "table_bookings", bookBody.Data.Type)
	assert.Equal(t, "lock-9", bookBody.Data.Relationships.TableLock.Data.ID)
	assert.Equal(t, bookingPhone{CountryCode: "US", Number: "5551234567"}, bookBody.Data.Attributes.Phone)
	assert.True(t, bookBody.Data.Attributes.TermsConsent)
}

func TestBookClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrNoAvailability)
		}},
		{"conflict", http.StatusConflict, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrNoAvailability)
		}},
		{"unprocessable", http.StatusUnprocessableEntity, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrNoAvailability)
		}},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrAuthRejected)
		}},
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrRateLimited)
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var te *booking.TransientError
			assert.ErrorAs(t, err, &te)
		}},
		{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
			var fe *booking.FatalError
			assert.ErrorAs(t, err, &fe)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"errors":[{"detail":"no tables"}]}`)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Book(context.Background(), "tok", testRequest())
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestBookLockSucceedsConfirmFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tables/locks" {
			fmt.Fprint(w, `{"data":{"id":"lock-9"}}`)
			return
		}
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Book(context.Background(), "tok", testRequest())
	assert.ErrorIs(t, err, booking.ErrNoAvailability)
}

func TestAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tables/availabilities", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "NY_POOLSIDE", q.Get("filter[restaurant_id]"))
		assert.Equal(t, "2026-08-05T13:30", q.Get("filter[start_date_time]"))
		assert.Equal(t, "2", q.Get("filter[party_size]"))
		fmt.Fprint(w, `{"data":[
			{"id":"s1","attributes":{"start_date_time":"2026-08-05T13:30","duration":90,"area":"pool"}},
			{"id":"s2","attributes":{"date_time":"2026-08-05T14:00","duration":90}}
		]}`)
	}))
	defer srv.Close()

	slots, err := newTestClient(srv).Availability(context.Background(), "tok", "NY_POOLSIDE", testSlot, 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, Slot{ID: "s1", Start: "2026-08-05T13:30", Duration: 90, Area: "pool"}, slots[0])
	assert.Equal(t, "2026-08-05T14:00", slots[1].Start, "date_time is the fallback start field")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/profiles/accounts/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"acct-1"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	assert.NoError(t, c.Ping(context.Background(), "good"))
	assert.ErrorIs(t, c.Ping(context.Background(), "bad"), booking.ErrAuthRejected)
}
