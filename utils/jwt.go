package utils

import (
	"errors"
	"time"

	"accelerator/config"
	"accelerator/models"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	OperatorID uint   `json:"operator_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWTToken issues an access token for an operator.
func GenerateJWTToken(op *models.Operator) (string, error) {
	expiry := time.Duration(config.AppConfig.JWTExpiryHours) * time.Hour
	claims := &Claims{
		OperatorID: op.ID,
		Role:       op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
