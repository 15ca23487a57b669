package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/util"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 5 * time.Minute
)

// Identity resolves the tracker account behind a user's access token
type Identity interface {
	Myself(ctx context.Context, accessToken string) (*tracker.User, error)
}

// OAuth drives the Yandex authorization-code login
type OAuth struct {
	conf     *oauth2.Config
	identity Identity
	sessions *Sessions
	http     *http.Client
	log      *zap.Logger
}

// NewOAuth builds the login flow from configuration
func NewOAuth(cfg config.OAuthConfig, identity Identity, sessions *Sessions, log *zap.Logger) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		identity: identity,
		sessions: sessions,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Login redirects to the provider with a fresh CSRF state
func Login(o *OAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := GenerateSecureToken(16)
		if err != nil {
			return err
		}

		c.Cookie(&fiber.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/",
			MaxAge:   int(stateMaxAge / time.Second),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Redirect(o.conf.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
	}
}

// CodeCallback checks state, exchanges the code and starts a session
func CodeCallback(o *OAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := c.Query("state")
		expected := c.Cookies(stateCookie)
		if state == "" || expected == "" || state != expected {
			return fiber.NewError(fiber.StatusBadRequest, "invalid OAuth state")
		}

		code := c.Query("code")
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing code")
		}

		ctx := context.WithValue(c.UserContext(), oauth2.HTTPClient, o.http)
		token, err := o.conf.Exchange(ctx, code)
		if err != nil || token.AccessToken == "" {
			o.log.Warn("OAuth code exchange failed", zap.Error(err))
			return fiber.NewError(fiber.StatusBadRequest, "could not obtain access token")
		}

		c.ClearCookie(stateCookie)
		return o.startSession(c, token.AccessToken, fiber.StatusTemporaryRedirect)
	}
}

// TokenLogin accepts an access token obtained by the login widget
func TokenLogin(o *OAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TokenLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := util.Validate.Struct(req); err != nil {
			return err
		}
		return o.startSession(c, req.AccessToken, fiber.StatusSeeOther)
	}
}

func (o *OAuth) startSession(c *fiber.Ctx, accessToken string, status int) error {
	account, err := o.identity.Myself(c.UserContext(), accessToken)
	if err != nil {
		if _, ok := tracker.AsStatusError(err); ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token for tracker")
		}
		return err
	}
	if account == nil {
		return errors.New("identity provider returned no account")
	}

	login := util.NormalizeLogin(account.Login)
	if login == "" {
		return fiber.NewError(fiber.StatusBadRequest, "unable to retrieve login")
	}

	user, err := o.sessions.EnsureUser(c.UserContext(), login)
	if err != nil {
		return err
	}

	cookie, err := o.sessions.IssueSessionCookie(user.Login)
	if err != nil {
		return err
	}
	c.Cookie(cookie)

	o.log.Info("user logged in", zap.String("login", user.Login), zap.Bool("is_admin", user.IsAdmin))

	target := "/dashboard/" + user.Login
	if user.IsAdmin {
		target = "/admin"
	}
	return c.Redirect(target, status)
}
