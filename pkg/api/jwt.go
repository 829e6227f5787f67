package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"
)

// CustomClaims are the Firebase ID token claims we care about.
type CustomClaims struct {
	Email string `json:"email"`
}

func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

type TokenValidator func(ctx context.Context, token string) (interface{}, error)

// EnsureValidToken checks Firebase ID tokens issued for projectID.
func EnsureValidToken(projectID string) (fiber.Handler, error) {
	if projectID == "" {
		return nil, fmt.Errorf("api: firebase project id is required for token validation")
	}

	issuerURL, err := url.Parse("https://securetoken.google.com/" + projectID)
	if err != nil {
		return nil, fmt.Errorf("api: issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{projectID},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("api: jwt validator: %w", err)
	}

	return NewTokenMiddleware(jwtValidator.ValidateToken), nil
}

// NewTokenMiddleware rejects requests without a bearer token accepted by validate.
func NewTokenMiddleware(validate TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		authHeader := c.Get("Authorization")

		if authHeader == "" {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		jwtToken, isBearer := strings.CutPrefix(authHeader, "Bearer ")
		if !isBearer || jwtToken == "" {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization header must be a bearer token",
			})
		}

		claimsI, jwtErr := validate(c.UserContext(), jwtToken)
		if jwtErr != nil {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Invalid auth token",
			})
		}

		if claims, ok := claimsI.(*validator.ValidatedClaims); ok {
			c.Locals("account_userid", claims.RegisteredClaims.Subject)
		}

		return c.Next()
	}
}
