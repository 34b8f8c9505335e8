package service

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	uuid "github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenDetails ...
type TokenDetails struct {
	AccessToken string
	AccessUUID  string
	AtExpires   int64
}

// AccessDetails ...
type AccessDetails struct {
	AccessUUID string
	UserID     int64
	UserName   string
}

// TokenService issues and checks HS256 access tokens.
type TokenService struct {
	Secret string
	TTL    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour * 24 * 7
	}
	return &TokenService{Secret: secret, TTL: ttl}
}

// CreateToken ...
func (t *TokenService) CreateToken(userID uint, userName string) (*TokenDetails, error) {
	td := &TokenDetails{}
	td.AtExpires = time.Now().Add(t.TTL).Unix()
	td.AccessUUID = uuid.New().String()

	//Creating Access Token
	atClaims := jwt.MapClaims{}
	atClaims["authorized"] = true
	atClaims["access_uuid"] = td.AccessUUID
	atClaims["user_id"] = userID
	atClaims["user_name"] = userName
	atClaims["exp"] = td.AtExpires

	at := jwt.NewWithClaims(jwt.SigningMethodHS256, atClaims)
	var err error
	td.AccessToken, err = at.SignedString([]byte(t.Secret))
	if err != nil {
		return nil, err
	}
	return td, nil
}

// ExtractToken reads the token from "Authorization: Bearer <token>".
func (t *TokenService) ExtractToken(r *http.Request) string {
	bearToken := r.Header.Get("Authorization")
	strArr := strings.Split(bearToken, " ")
	if len(strArr) == 2 {
		return strArr[1]
	}
	return ""
}

// Parse validates tokenString and returns its claims.
func (t *TokenService) Parse(tokenString string) (*AccessDetails, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		//Make sure that the token method conform to "SigningMethodHMAC"
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	accessUUID, ok := claims["access_uuid"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(fmt.Sprintf("%.f", claims["user_id"]), 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userName, _ := claims["user_name"].(string)
	return &AccessDetails{
		AccessUUID: accessUUID,
		UserID:     userID,
		UserName:   userName,
	}, nil
}

// ExtractTokenMetadata ...
func (t *TokenService) ExtractTokenMetadata(r *http.Request) (*AccessDetails, error) {
	return t.Parse(t.ExtractToken(r))
}

// Refresh issues a new token for the holder of a still-valid one.
func (t *TokenService) Refresh(r *http.Request) (*TokenDetails, error) {
	details, err := t.ExtractTokenMetadata(r)
	if err != nil {
		return nil, err
	}
	return t.CreateToken(uint(details.UserID), details.UserName)
}
