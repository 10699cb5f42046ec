package core

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"ntust-grades/lib/restyutil"
	"ntust-grades/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/http2"
)

var tracer = otel.Tracer("platforms/ntust/core")

const (
	UserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"
	Accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	AcceptLanguage = "zh-TW,zh;q=0.9"

	Timeout      = 30 * time.Second
	MaxRedirects = 20
)

// Endpoints are the three urls the login and grade flow touch. The entry and
// grade display urls live on the score system host, the login url on the SSO.
type Endpoints struct {
	Entry         string
	SSOLogin      string
	GradesDisplay string
}

var DefaultEndpoints = Endpoints{
	Entry:         "https://stuinfosys.ntust.edu.tw/StuScoreQueryServ/StuScoreQuery",
	SSOLogin:      "https://ssoam.ntust.edu.tw/nidp/app/login?sid=0&sid=0",
	GradesDisplay: "https://stuinfosys.ntust.edu.tw/StuScoreQueryServ/StuScoreQuery/DisplayAll",
}

type SessionOptions struct {
	// zero value means DefaultEndpoints
	Endpoints Endpoints
	// the cookie store shared by the authenticator and the grade fetcher,
	// a fresh in-memory jar is created if nil
	Jar http.CookieJar
	// nil means telemetry.SlogAPI
	Telemetry telemetry.API
	// if set, every http exchange is written here with the password redacted
	DumpOutput restyutil.InstrumentOutput
}

// Session is the http client both the authenticator and the grade fetcher
// act through. It is not safe for concurrent use.
type Session struct {
	Endpoints Endpoints
	Jar       http.CookieJar
	Http      *resty.Client

	entryUrl  *url.URL
	transport *http.Transport
}

func newTransport() (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	err := http2.ConfigureTransport(transport)
	if err != nil {
		return nil, err
	}
	return transport, nil
}

func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	_, span := tracer.Start(ctx, "NewSession")
	defer span.End()

	endpoints := opts.Endpoints
	if endpoints == (Endpoints{}) {
		endpoints = DefaultEndpoints
	}
	entryUrl, err := url.Parse(endpoints.Entry)
	if err != nil {
		return nil, err
	}

	jar := opts.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	transport, err := newTransport()
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetTransport(transport)
	client.SetCookieJar(jar)
	client.SetTimeout(Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects))
	client.SetHeaders(map[string]string{
		"User-Agent":                UserAgent,
		"Accept":                    Accept,
		"Accept-Language":           AcceptLanguage,
		"Upgrade-Insecure-Requests": "1",
	})

	telemetry.InstrumentResty(client, "platforms/ntust/http", telemetry.NewScopedAPI("ntust", tel))
	restyutil.DumpMessages(client, opts.DumpOutput, "Ecom_Password")

	return &Session{
		Endpoints: endpoints,
		Jar:       jar,
		Http:      client,
		entryUrl:  entryUrl,
		transport: transport,
	}, nil
}

// HasCookie reports whether the jar holds a cookie called name for the entry
// url or any of the extra urls. A cookie the jar would not send to one of
// those urls is not found, whatever its domain or path.
func (s *Session) HasCookie(name string, extra ...*url.URL) bool {
	targets := append([]*url.URL{s.entryUrl}, extra...)
	for _, u := range targets {
		if u == nil {
			continue
		}
		for _, c := range s.Jar.Cookies(u) {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}

// Close drops the pooled connections, the jar is left untouched.
func (s *Session) Close() {
	s.transport.CloseIdleConnections()
}
