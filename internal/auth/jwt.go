package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/enum"
)

// Claims identify either a staff member bound to a store or a customer.
// Customer tokens carry Role CUSTOMER and a CustomerID; StoreID is zero.
type Claims struct {
	UserID     uuid.UUID `json:"user_id"`
	StoreID    uuid.UUID `json:"store_id"`
	Role       string    `json:"role"`
	CustomerID uuid.UUID `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// IsCustomer reports whether the token belongs to a customer.
func (c *Claims) IsCustomer() bool {
	return c.Role == enum.RoleCustomer
}

// GenerateToken issues a short-lived staff token. Login lives in the account
// service; this is used by the seed tool and tests.
func GenerateToken(secret string, userID, storeID uuid.UUID, role string) (string, error) {
	return sign(secret, Claims{UserID: userID, StoreID: storeID, Role: role}, 15*time.Minute)
}

// GenerateCustomerToken issues a token for a storefront customer.
func GenerateCustomerToken(secret string, customerID uuid.UUID) (string, error) {
	return sign(secret, Claims{
		UserID:     customerID,
		CustomerID: customerID,
		Role:       enum.RoleCustomer,
	}, 24*time.Hour)
}

func sign(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
