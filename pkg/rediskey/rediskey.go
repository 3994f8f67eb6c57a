package rediskey

import "fmt"

// Trust-score cache keys (global convention across services)
const (
	UserTrustPrefix  = "trust:user"
	BuyerTrustPrefix = "trust:buyer"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildUserTrustKey returns "trust:user:{userID}"
func BuildUserTrustKey(userID string) string {
	return NamespaceKey(UserTrustPrefix, userID)
}

// BuildBuyerTrustKey returns "trust:buyer:{buyerID}"
func BuildBuyerTrustKey(buyerID string) string {
	return NamespaceKey(BuyerTrustPrefix, buyerID)
}
