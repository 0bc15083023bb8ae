package migration

import (
	"net/url"
	"strings"
)

// dsnForm identifies which shape a DSN string takes. pkg/wire.EnvURL
// produces a postgres:// URI; pkg/wire.Direct and pkg/wire.YAMLFile
// produce a libpq keyword/value string ("host=... port=... dbname=...").
// Both are valid inputs to WithDSN/WithWireDSN, so database-name
// extraction and URL construction below have to understand both.
type dsnForm int

const (
	dsnFormURI dsnForm = iota
	dsnFormKeywordValue
)

func classifyDSN(dsn string) dsnForm {
	if strings.Contains(dsn, "://") {
		return dsnFormURI
	}
	return dsnFormKeywordValue
}

// parseKeywordValueDSN parses a libpq-style "key=value key2=value2"
// string into its fields. None of this module's Wire implementations
// quote values, so a plain whitespace split is sufficient.
func parseKeywordValueDSN(dsn string) map[string]string {
	fields := make(map[string]string)
	for _, tok := range strings.Fields(dsn) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		fields[k] = v
	}
	return fields
}

// dsnToURL normalizes either DSN shape this module accepts into a
// *url.URL under the given scheme, so callers only deal with one shape
// regardless of which Wire produced the string.
func dsnToURL(dsn, scheme string) (*url.URL, error) {
	if classifyDSN(dsn) == dsnFormURI {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, err
		}
		u.Scheme = scheme
		return u, nil
	}

	fields := parseKeywordValueDSN(dsn)
	host := fields["host"]
	if host == "" {
		return nil, ErrInvalidDSNFormat
	}
	if port := fields["port"]; port != "" {
		host = host + ":" + port
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   "/" + fields["dbname"],
	}
	if user := fields["user"]; user != "" {
		if password := fields["password"]; password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	if sslmode := fields["sslmode"]; sslmode != "" {
		q := u.Query()
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
	}
	return u, nil
}
