package ledger

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Reward is an immutable credit event. Rows are only ever inserted; the
// reward-issuance collaborator upstream owns their lifecycle.
type Reward struct {
	ID          string    `gorm:"column:id;primaryKey"`
	UserID      string    `gorm:"column:user_id;index;not null"`
	Amount      int64     `gorm:"column:amount;not null"`
	ReferenceID string    `gorm:"column:reference_id;uniqueIndex;not null"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Reward) TableName() string {
	return "rewards"
}

// PayoutClaim is the ledger's read model over payout_requests. Only the
// columns needed to derive claimed balance are mapped; the payout service
// owns the full row.
type PayoutClaim struct {
	ID     string `gorm:"column:id;primaryKey"`
	UserID string `gorm:"column:user_id"`
	Amount int64  `gorm:"column:amount"`
	Status string `gorm:"column:status"`
}

func (PayoutClaim) TableName() string {
	return "payout_requests"
}

const (
	claimStatusPending = "pending"
	claimStatusPaid    = "paid"
)

// countsAgainstBalance reports whether the claim reserves funds. Pending
// claims count so in-flight requests cannot double-spend.
func (c *PayoutClaim) countsAgainstBalance() bool {
	return c.Status == claimStatusPending || c.Status == claimStatusPaid
}

// Balance is the point-in-time snapshot derived from reward and payout rows.
// It is computed, never stored; callers that mutate state based on it must
// re-validate inside a transaction.
type Balance struct {
	TotalEarned      int64 `json:"total_earned"`
	TotalClaimed     int64 `json:"total_claimed"`
	AvailableBalance int64 `json:"available_balance"`
	IsClaimable      bool  `json:"is_claimable"`
}

// RecordRewardInput carries a reward credit from the issuance collaborator.
type RecordRewardInput struct {
	UserID      string
	Amount      int64
	ReferenceID string
	Description string
}

// GenerateReferenceID builds a fallback reference for callers that do not
// supply their own idempotency key.
func GenerateReferenceID() (string, error) {
	datePart := time.Now().Format("20060102")

	r := make([]byte, 3)
	_, err := rand.Read(r)
	if err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s", datePart, randomPart), nil
}
