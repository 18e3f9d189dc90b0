package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/config"
	"seeker-scratch/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// BridgeClaims authorizes one UI session against the local bridge.
type BridgeClaims struct {
	Wallet    string `json:"wallet"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secret: []byte(cfg.JWTSecret),
		expiry: TTLBridgeToken,
	}
}

// GenerateToken signs a bridge token whose subject is the wallet address.
func (s *JWTService) GenerateToken(wallet address.PublicKey) (string, error) {
	now := time.Now().UTC()
	claims := BridgeClaims{
		Wallet:    wallet.String(),
		SessionID: models.GenerateSessionID(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*BridgeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BridgeClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*BridgeClaims)
	if !ok || !token.Valid || claims.Wallet == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
