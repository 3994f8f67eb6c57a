package trust

import (
	"strings"
	"time"
)

// ConsentEvent is a read-only record from the consent ledger. Buyer identity
// is embedded in the offer ID as "buyer-{id}-offer-*"; a first-class
// buyer_id column would remove the parsing below, but the consent store is
// an external collaborator and its schema is not ours to change.
type ConsentEvent struct {
	ID             string    `gorm:"column:id;primaryKey"`
	UserID         string    `gorm:"column:user_id;index"`
	OfferID        string    `gorm:"column:offer_id;index"`
	Action         string    `gorm:"column:action;index"`
	ReasonCategory string    `gorm:"column:reason_category"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (ConsentEvent) TableName() string {
	return "consent_events"
}

const (
	ActionGranted  = "granted"
	ActionDeclined = "declined"
	ActionRevoked  = "revoked"
)

// Level bands a trust score for policy decisions.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	offerPrefix    = "buyer-"
	offerSeparator = "-offer-"
)

// ParseBuyerOfferID extracts the buyer ID from an offer ID of the form
// "buyer-{id}-offer-*". The first "-offer-" terminates the buyer segment,
// so buyer IDs may themselves contain dashes.
func ParseBuyerOfferID(offerID string) (string, bool) {
	rest, found := strings.CutPrefix(offerID, offerPrefix)
	if !found {
		return "", false
	}

	buyerID, _, found := strings.Cut(rest, offerSeparator)
	if !found || buyerID == "" {
		return "", false
	}

	return buyerID, true
}
