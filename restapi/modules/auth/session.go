package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/model"
	"github.com/siriusuniversity/report-backend/util"
)

// Errors returned by session resolution
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidSession  = errors.New("invalid or expired session")
	ErrForbidden       = errors.New("forbidden")
)

const (
	// SessionCookie holds the signed login
	SessionCookie = "session"
	// SessionMaxAge is both the cookie max-age and the verification window
	SessionMaxAge = time.Hour
)

// IsAdmin reports whether login is on the admin allow-list
func IsAdmin(login string, allowList []string) bool {
	return login != "" && slices.Contains(allowList, login)
}

// Sessions issues session cookies and resolves them back to users
type Sessions struct {
	signer *Signer
	users  database.UserStore
	admins []string
	secure bool
	log    *zap.Logger
}

// NewSessions wires session handling. adminLogins must already be normalized.
func NewSessions(signer *Signer, users database.UserStore, adminLogins []string, secure bool, log *zap.Logger) *Sessions {
	return &Sessions{
		signer: signer,
		users:  users,
		admins: adminLogins,
		secure: secure,
		log:    log,
	}
}

// IssueSessionCookie signs login into a cookie the HTTP layer must set
func (s *Sessions) IssueSessionCookie(login string) (*fiber.Cookie, error) {
	value, err := s.signer.Issue(util.NormalizeLogin(login))
	if err != nil {
		return nil, err
	}
	return &fiber.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionMaxAge / time.Second),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}, nil
}

// ClearSessionCookie expires the session cookie
func (s *Sessions) ClearSessionCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// ResolveCurrentUser turns a cookie value into a user. The user row is
// created if missing and its admin flag is brought in line with the
// allow-list on every call.
func (s *Sessions) ResolveCurrentUser(ctx context.Context, cookieValue string) (*model.User, error) {
	if cookieValue == "" {
		return nil, ErrUnauthenticated
	}
	login, err := s.signer.Verify(cookieValue, SessionMaxAge)
	if err != nil {
		return nil, err
	}
	return s.EnsureUser(ctx, login)
}

// EnsureUser loads or creates the user for login and reconciles its admin flag
func (s *Sessions) EnsureUser(ctx context.Context, login string) (*model.User, error) {
	login = util.NormalizeLogin(login)
	expected := IsAdmin(login, s.admins)

	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, database.ErrNotFound) {
		user = model.NewUser(login)
		user.IsAdmin = expected
		if err := s.users.CreateUser(ctx, user); err != nil {
			// lost a race with a concurrent request for the same login
			existing, getErr := s.users.GetUserByLogin(ctx, login)
			if getErr != nil {
				return nil, fmt.Errorf("create user %s: %w", login, err)
			}
			user = existing
		} else {
			s.log.Info("created user", zap.String("login", login), zap.Bool("is_admin", expected))
		}
	} else if err != nil {
		return nil, fmt.Errorf("load user %s: %w", login, err)
	}

	if user.IsAdmin != expected {
		if err := s.users.SetUserAdmin(ctx, login, expected); err != nil {
			return nil, fmt.Errorf("sync admin flag for %s: %w", login, err)
		}
		s.log.Info("admin flag updated", zap.String("login", login), zap.Bool("is_admin", expected))
		user.IsAdmin = expected
	}
	return user, nil
}

// RequireAdmin passes admins through and rejects everyone else with
// ErrForbidden. user must come from ResolveCurrentUser.
func RequireAdmin(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}
