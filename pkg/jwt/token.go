package jwtPkg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"VoiceIntent/internal/entity"
)

const AccessTokenQuery = "access_token"

var (
	ErrMissingToken  = errors.New("missing access token")
	ErrInvalidFormat = errors.New("invalid Authorization format")
	ErrSecretNotSet  = errors.New("JWT secret not configured")
	ErrInvalidClaims = errors.New("token claims are missing required fields")
)

func Sign(data map[string]interface{}, expiredIn time.Duration) (string, int64, error) {
	expiredAt := time.Now().Add(expiredIn).Unix()

	secret := os.Getenv("JWT_ACCESS_TOKEN_SECRET")
	if secret == "" {
		return "", 0, fmt.Errorf("JWT_ACCESS_TOKEN_SECRET not set")
	}

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt
	claims["authorization"] = true

	for k, v := range data {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

// ExtractToken reads the bearer token from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so the access_token query parameter
// is accepted as a fallback.
func ExtractToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		if token := strings.TrimSpace(c.Query(AccessTokenQuery)); token != "" {
			return token, nil
		}
		return "", ErrMissingToken
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrInvalidFormat
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}

func VerifyToken(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyToken")

	accessToken, err := ExtractToken(c)
	if err != nil {
		log.WithError(err).Debug("No usable access token")
		return nil, err
	}

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		log.Error("JWT_ACCESS_TOKEN_SECRET environment variable not set")
		return nil, ErrSecretNotSet
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to parse JWT token")
		return nil, err
	}

	return token, nil
}

// UserFromClaims requires the id claim. Email and username are optional.
func UserFromClaims(token *jwt.Token) (entity.UserLoginData, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.UserLoginData{}, ErrInvalidClaims
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return entity.UserLoginData{}, ErrInvalidClaims
	}

	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)

	return entity.UserLoginData{
		ID:       id,
		Email:    email,
		Username: username,
	}, nil
}

func GetUserLoginData(c *fiber.Ctx) (entity.UserLoginData, error) {
	user, ok := c.Locals("user").(entity.UserLoginData)
	if !ok {
		return entity.UserLoginData{}, fiber.ErrUnauthorized
	}

	return user, nil
}
