package domain

import "time"

// Subscription maps a phone number to the credentials and parameters used
// for its scheduled reminder cycles. PhoneNumber is the business key: at
// most one record per number, active or not. Matching is exact-string,
// no phone-format normalization is performed.
type Subscription struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phoneNumber"`
	APIKey        string    `json:"apiKey"`
	CanvasBaseURL string    `json:"canvasUrl,omitempty"`
	DaysAhead     int       `json:"daysAhead"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DefaultDaysAhead is the lookahead window applied when a subscription
// does not specify one.
const DefaultDaysAhead = 7
