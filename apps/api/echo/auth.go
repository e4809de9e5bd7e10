package echoapi

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/duka/core"
)

const (
	bearerScheme = "Bearer"
	apiKeyScheme = "ApiKey"

	contextClaimsKey = "adminClaims"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

func GetAdminClaims(conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   conf.AdminEmail,
			Audience:  "Dashboard",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        conf.AdminEmail,
		IsAdmin:      true,
	}
}

func authenticate(email, pwd string, conf *core.Config) (*Claims, error) {
	if conf.AdminPasswordHash == "" || email != conf.AdminEmail {
		return nil, errAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(conf.AdminPasswordHash), []byte(pwd)); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetAdminClaims(conf), nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func parseToken(tokenStr string, conf *core.Config) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return conf.SecretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errUnauthorized
	}
	return claims, nil
}

func matchesAPIKey(key string, conf *core.Config) bool {
	var match bool
	for _, known := range conf.APIKeys {
		// check all keys to keep timing uniform
		if subtle.ConstantTimeCompare([]byte(key), []byte(known)) == 1 {
			match = true
		}
	}
	return match
}

// combinedAuthMiddleware authorizes a request carrying either an admin
// JWT ("Bearer <token>") or a static API key ("ApiKey <key>") in the
// Authorization header; the two are accepted interchangeably.
func combinedAuthMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return errMissingToken
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[1] == "" {
				return errMissingToken
			}

			switch parts[0] {
			case bearerScheme:
				claims, err := parseToken(parts[1], conf)
				if err != nil {
					return err
				}
				ctx.Set(contextClaimsKey, claims)
				return next(ctx)
			case apiKeyScheme:
				if !matchesAPIKey(parts[1], conf) {
					return errUnauthorized
				}
				return next(ctx)
			}
			return errUnauthorized
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetAdminClaims(conf, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims, conf)
	return token, errors.Wrap(err, "generating token")
}
