package models

import "github.com/golang-jwt/jwt/v5"

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	KYCLevel     int    `json:"kyc_level"`
	TokenVersion int    `json:"token_version"`
}
