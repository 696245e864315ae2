package payment

import (
	"errors"
	"math"
	"strings"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	ProductName                   = "Repair Service"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("STRIPE_SECRET_KEY is not set")
)

// SessionParams describes one hosted checkout for a single repair.
type SessionParams struct {
	RequestID   string
	UserID      string
	RepairerID  string
	AmountMinor int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	ID  string
	URL string
}

// Event is the subset of a processor webhook the service acts on.
type Event struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

// currencies settled without a minor unit
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// MinorUnits converts a major-unit amount into the processor's integer unit.
func MinorUnits(amount float64, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}
