// Package soho is a client for the venue chain's private booking API: an
// OAuth identity service plus a JSON:API-shaped tables service. Booking is a
// two-step flow: hold the table with a lock, then confirm the booking
// against that lock.
package soho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/token"
)

const (
	defaultIdentityURL = "https://identity.sohohouse.com"
	defaultTablesURL   = "https://api.production.sohohousedigital.com"

	// The API only answers to the mobile app's user agent.
	defaultUserAgent = "DigitalHouse/8.129 (com.sohohouse.houseseven; build:17190; iOS 18.5.0)"

	// Fallback when the token response omits expires_in.
	defaultExpiresIn = 7200 * time.Second

	slotTimeLayout = "2006-01-02T15:04"
)

type Config struct {
	IdentityURL string
	TablesURL   string
	ClientID    string
	UserAgent   string
	Timeout     time.Duration
}

type Client struct {
	hc  *http.Client
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = defaultIdentityURL
	}
	if cfg.TablesURL == "" {
		cfg.TablesURL = defaultTablesURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		hc:  &http.Client{Timeout: cfg.Timeout},
		cfg: cfg,
	}
}

func (c *Client) Name() string { return "soho" }

// --- auth ---

type refreshRequest struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	CreatedAt    int64  `json:"created_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges the stored refresh token for a new session. Rejection by
// the identity service is an AuthError; only network and 5xx failures are
// transient.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (token.Session, error) {
	body := refreshRequest{
		ClientID:     c.cfg.ClientID,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	}
	status, raw, err := c.do(ctx, http.MethodPost, c.cfg.IdentityURL+"/oauth/token", nil, body, "")
	if err != nil {
		return token.Session{}, &booking.TransientError{Cause: err}
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusTooManyRequests || status >= 500:
		return token.Session{}, &booking.TransientError{Cause: fmt.Errorf("token refresh failed (status=%d)", status)}
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("token refresh rejected (status=%d): %s", status, apiMessage(raw))}
	default:
		return token.Session{}, &booking.FatalError{Cause: fmt.Errorf("unexpected token refresh response (status=%d)", status)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil || tr.AccessToken == "" {
		return token.Session{}, &booking.FatalError{Cause: fmt.Errorf("undecodable token response: %v", err)}
	}
	issued := time.Now()
	if tr.CreatedAt > 0 {
		issued = time.Unix(tr.CreatedAt, 0)
	}
	ttl := defaultExpiresIn
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}
	next := refreshToken
	if tr.RefreshToken != "" {
		next = tr.RefreshToken
	}
	return token.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: next,
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(ttl),
	}, nil
}

// Ping verifies the access token against the account endpoint.
func (c *Client) Ping(ctx context.Context, accessToken string) error {
	status, raw, err := c.do(ctx, http.MethodGet, c.cfg.TablesURL+"/profiles/accounts/me", nil, nil, accessToken)
	if err != nil {
		return &booking.TransientError{Cause: err}
	}
	if status == http.StatusOK {
		return nil
	}
	return classify("ping", status, raw)
}

// --- booking ---

type resourceID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type resourceRef struct {
	Data resourceID `json:"data"`
}

type lockRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			PartySize      int    `json:"party_size"`
			ExtraAttribute string `json:"extra_attribute"`
			DateTime       string `json:"date_time"`
		} `json:"attributes"`
		Relationships struct {
			Restaurant resourceRef `json:"restaurant"`
		} `json:"relationships"`
	} `json:"data"`
}

type lockResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expires_at"`
		} `json:"attributes"`
	} `json:"data"`
}

type bookingPhone struct {
	CountryCode string `json:"country_code"`
	Number      string `json:"number"`
}

type bookingRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			DateTime     string       `json:"date_time"`
			PartySize    int          `json:"party_size"`
			Phone        bookingPhone `json:"phone"`
			GuestNotes   string       `json:"guest_notes"`
			TermsConsent bool         `json:"terms_consent"`
			GuestConsent bool         `json:"guest_consent"`
		} `json:"attributes"`
		Relationships struct {
			Restaurant resourceRef `json:"restaurant"`
			TableLock  resourceRef `json:"table_lock"`
		} `json:"relationships"`
	} `json:"data"`
}

type bookingResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			State string `json:"state"`
		} `json:"attributes"`
	} `json:"data"`
}

// Book holds a table lock for the requested slot and confirms a booking
// against it. A nil error means the reservation is confirmed.
func (c *Client) Book(ctx context.Context, accessToken string, req booking.Request) (booking.Confirmation, error) {
	lockID, err := c.lockTable(ctx, accessToken, req)
	if err != nil {
		return booking.Confirmation{}, err
	}
	return c.confirmBooking(ctx, accessToken, req, lockID)
}

func (c *Client) lockTable(ctx context.Context, accessToken string, req booking.Request) (string, error) {
	var lr lockRequest
	lr.Data.Type = "table_locks"
	lr.Data.Attributes.PartySize = req.PartySize
	lr.Data.Attributes.ExtraAttribute = "default"
	lr.Data.Attributes.DateTime = req.Slot.Format(slotTimeLayout)
	lr.Data.Relationships.Restaurant = restaurantRef(req.VenueID)

	status, raw, err := c.do(ctx, http.MethodPost,
		c.cfg.TablesURL+"/tables/locks", map[string]string{"include": "venue,restaurant"}, lr, accessToken)
	if err != nil {
		return "", &booking.TransientError{Cause: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", classify("lock", status, raw)
	}

	var resp lockResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &booking.FatalError{Cause: fmt.Errorf("undecodable lock response: %w", err)}
	}
	if resp.Data.ID == "" {
		return "", &booking.FatalError{Cause: fmt.Errorf("lock response missing id")}
	}
	return resp.Data.ID, nil
}

func (c *Client) confirmBooking(ctx context.Context, accessToken string, req booking.Request, lockID string) (booking.Confirmation, error) {
	var br bookingRequest
	br.Data.Type = "table_bookings"
	br.Data.Attributes.DateTime = req.Slot.Format(slotTimeLayout)
	br.Data.Attributes.PartySize = req.PartySize
	br.Data.Attributes.Phone = bookingPhone{CountryCode: req.PhoneCountry, Number: req.PhoneNumber}
	br.Data.Attributes.GuestNotes = req.GuestNotes
	br.Data.Attributes.TermsConsent = true
	br.Data.Attributes.GuestConsent = true
	br.Data.Relationships.Restaurant = restaurantRef(req.VenueID)
	br.Data.Relationships.TableLock = resourceRef{Data: resourceID{Type: "table_locks", ID: lockID}}

	status, raw, err := c.do(ctx, http.MethodPost,
		c.cfg.TablesURL+"/tables/table_bookings", map[string]string{"include": "venue,restaurant"}, br, accessToken)
	if err != nil {
		return booking.Confirmation{}, &booking.TransientError{Cause: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return booking.Confirmation{}, classify("book", status, raw)
	}

	var resp bookingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return booking.Confirmation{}, &booking.FatalError{Cause: fmt.Errorf("undecodable booking response: %w", err)}
	}
	if resp.Data.ID == "" {
		return booking.Confirmation{}, &booking.FatalError{Cause: fmt.Errorf("booking response missing id")}
	}
	return booking.Confirmation{
		ReservationID: resp.Data.ID,
		VenueID:       req.VenueID,
		Slot:          req.Slot,
		State:         resp.Data.Attributes.State,
	}, nil
}

// --- availability ---

// Slot is one bookable start time reported by the availability endpoint.
type Slot struct {
	ID        string
	Start     string
	Duration  int
	TableType string
	Area      string
}

type availabilityResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			StartDateTime string `json:"start_date_time"`
			DateTime      string `json:"date_time"`
			Duration      int    `json:"duration"`
			TableType     string `json:"table_type"`
			Area          string `json:"area"`
		} `json:"attributes"`
	} `json:"data"`
}

// Availability lists open slots at a venue around the requested time.
func (c *Client) Availability(ctx context.Context, accessToken, venueID string, at time.Time, partySize int) ([]Slot, error) {
	query := map[string]string{
		"filter[restaurant_id]":       venueID,
		"filter[start_date_time]":     at.Format(slotTimeLayout),
		"filter[party_size]":          fmt.Sprintf("%d", partySize),
		"filter[search_alternatives]": "true",
		"include":                     "venue,restaurant",
	}
	status, raw, err := c.do(ctx, http.MethodGet, c.cfg.TablesURL+"/tables/availabilities", query, nil, accessToken)
	if err != nil {
		return nil, &booking.TransientError{Cause: err}
	}
	if status != http.StatusOK {
		return nil, classify("availability", status, raw)
	}

	var resp availabilityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &booking.FatalError{Cause: fmt.Errorf("undecodable availability response: %w", err)}
	}
	out := make([]Slot, 0, len(resp.Data))
	for _, d := range resp.Data {
		start := d.Attributes.StartDateTime
		if start == "" {
			start = d.Attributes.DateTime
		}
		out = append(out, Slot{
			ID:        d.ID,
			Start:     start,
			Duration:  d.Attributes.Duration,
			TableType: d.Attributes.TableType,
			Area:      d.Attributes.Area,
		})
	}
	return out, nil
}

// --- plumbing ---

func restaurantRef(venueID string) resourceRef {
	return resourceRef{Data: resourceID{Type: "restaurants", ID: venueID}}
}

// classify maps a non-success tables-service status to the error taxonomy.
func classify(op string, status int, raw []byte) error {
	detail := apiMessage(raw)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s (status=%d): %w", op, status, booking.ErrAuthRejected)
	case status == http.StatusNotFound || status == http.StatusConflict ||
		status == http.StatusGone || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s (status=%d) %s: %w", op, status, detail, booking.ErrNoAvailability)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s (status=%d): %w", op, status, booking.ErrRateLimited)
	case status >= 500:
		return &booking.TransientError{Cause: fmt.Errorf("%s failed (status=%d) %s", op, status, detail)}
	default:
		// 400 and anything else unexpected: our request shape no longer
		// matches the API. Abort rather than hammer remaining venues.
		return &booking.FatalError{Cause: fmt.Errorf("%s failed (status=%d) %s", op, status, detail)}
	}
}

// apiMessage pulls a human-readable detail out of a JSON:API error body.
func apiMessage(raw []byte) string {
	var e struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	for _, ee := range e.Errors {
		if ee.Detail != "" {
			return ee.Detail
		}
		if ee.Title != "" {
			return ee.Title
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, rawURL string, query map[string]string, body any, accessToken string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("authorization", "Bearer "+accessToken)
	}
	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

var _ booking.Provider = (*Client)(nil)
