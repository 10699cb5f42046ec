package telemetry

import "net/url"

// RedactUrl drops the query, fragment and userinfo of rawUrl, those are
// where one time tickets and credentials travel. Unparsable input is
// replaced entirely.
func RedactUrl(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "<unparsable url>"
	}
	redacted := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   u.Path,
		Opaque: u.Opaque,
	}
	return redacted.String()
}
