package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, expiresAt, err := tm.GenerateToken("ops@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt %v is not in the future", expiresAt)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.Role != RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	other := NewTokenManager("other", time.Minute)
	foreign, _, _ := other.GenerateToken("ops@example.com", RoleAdmin)
	if _, err := tm.ParseToken(foreign); err == nil {
		t.Error("accepted token signed with another secret")
	}

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.GenerateToken("ops@example.com", RoleAdmin)
	if _, err := tm.ParseToken(old); err == nil {
		t.Error("accepted expired token")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := tm.ParseToken(unsigned); err == nil {
		t.Error("accepted unsigned token")
	}
}

func TestComparePassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "hunter2"); err != nil {
		t.Errorf("ComparePassword: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func newProtectedApp(m *AuthMiddleware, roles ...Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.SendStatus(fe.Code)
			}
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/p", m.Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Subject)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	admin, _, _ := tm.GenerateToken("ops@example.com", RoleAdmin)
	svc, _, _ := tm.GenerateToken("classifier", RoleService)

	tests := []struct {
		name    string
		enabled bool
		header  string
		roles   []Role
		want    int
	}{
		{"disabled passes", false, "", []Role{RoleAdmin}, http.StatusOK},
		{"missing header", true, "", nil, http.StatusUnauthorized},
		{"bad scheme", true, "Basic abc", nil, http.StatusUnauthorized},
		{"bad token", true, "Bearer nope", nil, http.StatusUnauthorized},
		{"admin ok", true, "Bearer " + admin, []Role{RoleAdmin}, http.StatusOK},
		{"service forbidden", true, "Bearer " + svc, []Role{RoleAdmin}, http.StatusForbidden},
		{"service allowed", true, "Bearer " + svc, []Role{RoleAdmin, RoleService}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newProtectedApp(NewAuthMiddleware(tm, tt.enabled), tt.roles...)
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
