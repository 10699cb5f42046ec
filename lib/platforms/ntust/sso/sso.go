package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"ntust-grades/lib/platforms/ntust/core"
	"ntust-grades/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("platforms/ntust/sso")
	meter  = otel.Meter("platforms/ntust/sso")
)

const report_authenticate = "sso.authenticate"

// AuthCookie is the ASP.NET forms-auth cookie the score system sets once
// the SSO hands the browser back.
const AuthCookie = ".ASPXAUTH"

var (
	ErrLoginStatus       = errors.New("sso login did not respond with 200")
	ErrRedirectNotFound  = errors.New("sso login response has no javascript redirect")
	ErrAuthCookieMissing = errors.New("auth cookie missing after redirect")
)

// the SSO hands control back with a client side redirect instead of a 3xx
var redirectPattern = regexp.MustCompile(`window\.location\.href='([^']+)'`)

type Credentials struct {
	Username string
	Password string
}

// form reproduces the field set of the SSO login form, the server rejects
// anything else silently.
func (c Credentials) form() url.Values {
	return url.Values{
		"option":        {"credential"},
		"Ecom_User_ID":  {c.Username},
		"Ecom_Password": {c.Password},
		"loginButton2":  {""},
	}
}

type Authenticator struct {
	session  *core.Session
	tel      telemetry.API
	attempts metric.Int64Counter
}

func NewAuthenticator(session *core.Session, tel telemetry.API) Authenticator {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	attempts, _ := meter.Int64Counter(
		"ntust.login.attempts",
		metric.WithDescription("sso logins by outcome"),
	)
	return Authenticator{
		session:  session,
		tel:      tel,
		attempts: attempts,
	}
}

// Login runs Authenticate and only reports whether it succeeded, the cause
// of a failure goes to telemetry.
func (a Authenticator) Login(ctx context.Context, username, password string) bool {
	err := a.Authenticate(ctx, Credentials{Username: username, Password: password})
	outcome := "success"
	if err != nil {
		outcome = "failure"
		a.tel.ReportWarning(report_authenticate, err)
	}
	if a.attempts != nil {
		a.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	return err == nil
}

// Authenticate walks entry -> sso login -> javascript redirect, afterwards
// the session's jar carries AuthCookie.
//
// The cookie is only looked up for the entry url and the url the redirect
// landed on, an AuthCookie scoped to any other domain or path does not count.
func (a Authenticator) Authenticate(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "authenticator:Authenticate")
	defer span.End()

	endpoints := a.session.Endpoints

	// lands on the sso login page, only the cookies picked up on the way matter
	_, err := a.session.Http.R().
		SetContext(ctx).
		Get(endpoints.Entry)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch entry")
		return fmt.Errorf("fetch entry: %w", err)
	}

	res, err := a.session.Http.R().
		SetContext(ctx).
		SetBody(creds.form().Encode()).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(endpoints.SSOLogin)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post credentials")
		return fmt.Errorf("post credentials: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, ErrLoginStatus.Error())
		return fmt.Errorf("%w: got %d", ErrLoginStatus, res.StatusCode())
	}

	redirect, ok := FindRedirect(res.String())
	if !ok {
		span.SetStatus(codes.Error, ErrRedirectNotFound.Error())
		return ErrRedirectNotFound
	}
	// the query carries the sso ticket
	span.SetAttributes(attribute.String("redirect", telemetry.RedactUrl(redirect)))
	a.tel.ReportDebug("sso redirect found", telemetry.RedactUrl(redirect))

	res, err = a.session.Http.R().
		SetContext(ctx).
		Get(redirect)
	if err != nil {
		span.SetStatus(codes.Error, "failed to follow redirect")
		return fmt.Errorf("follow redirect: %w", err)
	}

	var landed *url.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		landed = res.RawResponse.Request.URL
	}
	if !a.session.HasCookie(AuthCookie, landed) {
		span.SetStatus(codes.Error, ErrAuthCookieMissing.Error())
		return ErrAuthCookieMissing
	}

	return nil
}

// FindRedirect extracts the target of the first
// window.location.href='...' assignment in body.
func FindRedirect(body string) (string, bool) {
	match := redirectPattern.FindStringSubmatch(body)
	if match == nil {
		return "", false
	}
	return match[1], true
}
