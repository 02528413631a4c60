package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/taskvine/identity/mailer"
	"github.com/taskvine/identity/provider"
	"github.com/taskvine/identity/provider/google"
	"github.com/taskvine/identity/session"
	"github.com/taskvine/identity/signup"
)

// ControllerRedirects are the post-auth browser destinations. Both come
// from deployment config; an empty one is logged when a handler needs it.
type ControllerRedirects struct {
	Success string
	Failure string
}

// Controller owns the HTTP surface: local login, signup, email links,
// and the OAuth flows.
type Controller struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Sessions  *session.Manager
	Registry  *provider.Registry
	Signups   *signup.Orchestrator
	Tokens    TokenService
	Mail      mailer.Mailer
	Mobile    *google.MobileVerifier
	Redirects ControllerRedirects
	BaseURL   string
	Metrics   *Metrics
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithMobileVerifier(v *google.MobileVerifier) ControllerOption {
	return func(c *Controller) *Controller {
		c.Mobile = v
		return c
	}
}

func WithRedirects(success, failure string) ControllerOption {
	return func(c *Controller) *Controller {
		c.Redirects = ControllerRedirects{Success: success, Failure: failure}
		return c
	}
}

func WithMetrics(m *Metrics) ControllerOption {
	return func(c *Controller) *Controller {
		c.Metrics = m
		return c
	}
}

func NewController(repo RepositoryManager, sessions *session.Manager, registry *provider.Registry, signups *signup.Orchestrator, tokens TokenService, mail mailer.Mailer, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:   defLogger{},
		Repo:     repo,
		Sessions: sessions,
		Registry: registry,
		Signups:  signups,
		Tokens:   tokens,
		Mail:     mail,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Sessions == nil {
		panic("Missing session manager in identity controller...")
	}

	if c.Registry == nil {
		panic("Missing provider registry in identity controller...")
	}

	if c.Mail == nil {
		c.Mail = mailer.NewNoop(nil)
	}

	return c
}

// RegisterRoutes mounts the identity endpoints on the router.
func (a *Controller) RegisterRoutes(app fiber.Router) {
	app.Post("/login", a.LoginPost)
	app.Post("/signup", a.SignupPost)
	app.Post("/signup/check", a.SignupCheckPost)
	app.Get("/verify", a.VerifyGet)
	app.Post("/reset-password", a.ResetPasswordPost)
	app.Post("/update-password", a.UpdatePasswordPost)
	app.Get("/google", a.oauthStart("google"))
	app.Get("/google/verify", a.oauthCallback("google"))
	app.Post("/google/mobile", a.GoogleMobilePost)
	app.Get("/discord", a.oauthStart("discord"))
	app.Get("/discord/verify", a.oauthCallback("discord"))
	app.Get("/me", RequireSession(), a.MeGet)
	app.Get("/logout", a.LogoutGet)
}

// MeGet returns the identity view of the session's user.
func (a *Controller) MeGet(c *fiber.Ctx) error {
	sess, _ := session.FromCtx(c)

	user, err := a.Repo.Users().GetByID(c.Context(), sess.UserID())
	if err != nil {
		return a.fail(c, err)
	}

	id := user.Identity()
	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":       id.ID(),
			"username": id.Username(),
			"email":    id.Email(),
			"role":     id.Role(),
		},
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *Controller) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryValidation, "login payload is invalid"))
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	account, err := a.Registry.Local().Verify(c.Context(), payload.Email, payload.Password)
	if err != nil {
		a.countLogin("local", "failure")
		return a.fail(c, err)
	}

	if err := a.establishSession(c, account); err != nil {
		a.countLogin("local", "failure")
		return a.fail(c, err)
	}

	a.countLogin("local", "success")

	return c.JSON(fiber.Map{
		"user": accountView(account),
	})
}

func (a *Controller) SignupPost(c *fiber.Ctx) error {
	payload := new(signup.Request)

	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse signup payload"))
	}

	account, err := a.Signups.Signup(c.Context(), *payload)
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": fiber.Map{
			"id":      account.ID,
			"email":   account.Email,
			"name":    account.Name,
			"team_id": account.TeamID,
		},
	})
}

func (a *Controller) SignupCheckPost(c *fiber.Ctx) error {
	payload := new(signup.Request)

	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse signup payload"))
	}

	if err := a.Signups.Check(c.Context(), *payload); err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (a *Controller) VerifyGet(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return a.fail(c, goerrors.New("verification token is missing", goerrors.CategoryBadInput))
	}

	claims, err := a.Tokens.Validate(token, PurposeEmailVerification)
	if err != nil {
		return a.fail(c, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return a.fail(c, ErrTokenMalformed)
	}

	if err := a.Repo.Users().MarkEmailVerified(c.Context(), userID); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified"))
	}

	return c.Redirect(a.successRedirect("verify"), fiber.StatusSeeOther)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *Controller) ResetPasswordPost(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse reset payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryValidation, "reset payload is invalid"))
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Mail).WithLogger(a.Logger)
	if err := handler.Execute(c.Context(), InitializePasswordResetMessage{
		Email:   payload.Email,
		BaseURL: a.BaseURL,
	}); err != nil {
		a.Logger.Error("password reset initialization failed: %v", err)
	}

	// the response never discloses whether the account exists
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}

// UpdatePasswordRequest payload
type UpdatePasswordRequest struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

func (r UpdatePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

func (a *Controller) UpdatePasswordPost(c *fiber.Ctx) error {
	payload := new(UpdatePasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse password payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryValidation, "password payload is invalid"))
	}

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	if err := handler.Execute(c.Context(), FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}); err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// GoogleMobileRequest payload
type GoogleMobileRequest struct {
	IDToken string `form:"id_token" json:"id_token"`
}

func (a *Controller) GoogleMobilePost(c *fiber.Ctx) error {
	if a.Mobile == nil {
		return a.fail(c, goerrors.New("mobile sign-in is not configured", goerrors.CategoryOperation))
	}

	payload := new(GoogleMobileRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse token payload"))
	}
	if payload.IDToken == "" {
		return a.fail(c, goerrors.New("id_token is required", goerrors.CategoryValidation))
	}

	profile, err := a.Mobile.Verify(c.Context(), payload.IDToken)
	if err != nil {
		a.countLogin("google-mobile", "failure")
		return a.fail(c, err)
	}

	account, err := a.resolveProfile(c, profile)
	if err != nil {
		a.countLogin("google-mobile", "failure")
		return a.fail(c, err)
	}

	if err := a.establishSession(c, account); err != nil {
		a.countLogin("google-mobile", "failure")
		return a.fail(c, err)
	}

	a.countLogin("google-mobile", "success")

	return c.JSON(fiber.Map{
		"user": accountView(account),
	})
}

func (a *Controller) LogoutGet(c *fiber.Ctx) error {
	if sess, ok := session.FromCtx(c); ok {
		if err := a.Sessions.Destroy(c, sess); err != nil {
			a.Logger.Error("failed to destroy session on logout: %v", err)
		}
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

const oauthStateKey = "oauth.state"

func (a *Controller) oauthStart(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		strategy, err := a.Registry.Strategy(name)
		if err != nil {
			return a.fail(c, err)
		}

		sess, ok := session.FromCtx(c)
		if !ok {
			return a.fail(c, goerrors.New("session middleware is not installed", goerrors.CategoryInternal))
		}

		state, err := session.NewSessionID()
		if err != nil {
			return a.fail(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create oauth state"))
		}
		sess.Set(oauthStateKey+":"+name, state)

		return c.Redirect(strategy.AuthCodeURL(state), fiber.StatusSeeOther)
	}
}

func (a *Controller) oauthCallback(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		strategy, err := a.Registry.Strategy(name)
		if err != nil {
			return a.fail(c, err)
		}

		sess, ok := session.FromCtx(c)
		if !ok {
			return a.fail(c, goerrors.New("session middleware is not installed", goerrors.CategoryInternal))
		}

		raw, _ := sess.Get(oauthStateKey + ":" + name)
		sess.Unset(oauthStateKey + ":" + name)
		stored, _ := raw.(string)

		state := c.Query("state")
		if state == "" || stored != state {
			a.countLogin(name, "failure")
			a.Logger.Warn("oauth state mismatch provider=%s", name)
			return c.Redirect(a.failureRedirect(name), fiber.StatusSeeOther)
		}

		code := c.Query("code")
		if code == "" {
			a.countLogin(name, "failure")
			return c.Redirect(a.failureRedirect(name), fiber.StatusSeeOther)
		}

		token, err := strategy.Exchange(c.Context(), code)
		if err != nil {
			a.countLogin(name, "failure")
			a.Logger.Error("oauth exchange failed provider=%s error=%v", name, err)
			return c.Redirect(a.failureRedirect(name), fiber.StatusSeeOther)
		}

		profile, err := strategy.UserInfo(c.Context(), token)
		if err != nil {
			a.countLogin(name, "failure")
			a.Logger.Error("oauth profile fetch failed provider=%s error=%v", name, err)
			return c.Redirect(a.failureRedirect(name), fiber.StatusSeeOther)
		}

		account, err := a.resolveProfile(c, profile)
		if err != nil {
			a.countLogin(name, "failure")
			a.Logger.Warn("oauth login rejected provider=%s error=%v", name, err)
			return c.Redirect(a.failureRedirect(name), fiber.StatusSeeOther)
		}

		if err := a.establishSession(c, account); err != nil {
			a.countLogin(name, "failure")
			return a.fail(c, err)
		}

		a.countLogin(name, "success")

		return c.Redirect(a.successRedirect(name), fiber.StatusSeeOther)
	}
}

// resolveProfile maps a provider profile to an existing account.
// Registration stays invite-only, so an unknown profile is rejected
// rather than auto-created.
func (a *Controller) resolveProfile(c *fiber.Ctx, profile *provider.Profile) (*provider.Account, error) {
	if profile.Email == "" {
		return nil, provider.ErrEmailMissing
	}

	var user *User
	var err error

	if profile.Provider == string(ProviderDiscord) && profile.ProviderUserID != "" {
		if user, err = a.Repo.Users().GetByDiscordID(c.Context(), profile.ProviderUserID); err != nil && !goerrors.IsNotFound(err) {
			return nil, err
		}
	}

	if user == nil {
		if user, err = a.Repo.Users().GetByEmail(c.Context(), profile.Email); err != nil {
			return nil, err
		}
	}

	if user.Deactivated() {
		return nil, provider.ErrAccountSuspended
	}

	return providerAccount(user), nil
}

func (a *Controller) establishSession(c *fiber.Ctx, account *provider.Account) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return goerrors.New("session middleware is not installed", goerrors.CategoryInternal)
	}

	// a fresh id on every login; the old session is discarded
	if err := a.Sessions.Regenerate(c, sess); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate session")
	}

	sess.BindUser(a.Registry.SerializeUser(account))
	sess.Set("email", account.Email)
	sess.Set("role", account.Role)

	return nil
}

func (a *Controller) successRedirect(operation string) string {
	if a.Redirects.Success == "" {
		a.Logger.Error("success redirect not configured operation=%s", operation)
		return "/"
	}
	return a.Redirects.Success
}

func (a *Controller) failureRedirect(operation string) string {
	if a.Redirects.Failure == "" {
		a.Logger.Error("failure redirect not configured operation=%s", operation)
		return "/"
	}
	return a.Redirects.Failure
}

func (a *Controller) countLogin(strategy, result string) {
	if a.Metrics != nil {
		a.Metrics.RecordLogin(strategy, result)
	}
}

// fail renders the error response. Validation and conflict messages
// travel verbatim; everything else degrades to a generic message with
// the detail kept in the logs.
func (a *Controller) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "something went wrong"
	code := ""

	var e *goerrors.Error
	if goerrors.As(err, &e) {
		code = e.TextCode
		switch e.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			status, message = fiber.StatusBadRequest, e.Message
		case goerrors.CategoryAuth:
			status, message = fiber.StatusUnauthorized, e.Message
		case goerrors.CategoryAuthz:
			status, message = fiber.StatusForbidden, e.Message
		case goerrors.CategoryNotFound:
			status, message = fiber.StatusNotFound, e.Message
		case goerrors.CategoryConflict:
			status, message = fiber.StatusConflict, e.Message
		case goerrors.CategoryRateLimit:
			status, message = fiber.StatusTooManyRequests, e.Message
		case goerrors.CategoryOperation:
			status = fiber.StatusServiceUnavailable
		}
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed path=%s error=%v", c.Path(), err)
	}

	body := fiber.Map{"error": message}
	if code != "" {
		body["code"] = code
	}

	return c.Status(status).JSON(body)
}

func accountView(account *provider.Account) fiber.Map {
	return fiber.Map{
		"id":    account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  account.Role,
	}
}
