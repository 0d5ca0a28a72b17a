package redirect

import (
	"errors"
	"net/url"
)

// MaxURLLength bounds the candidate size accepted by Resolve.
const MaxURLLength = 2048

var (
	ErrMissingParameter = errors.New("missing destination")
	ErrInvalidURL       = errors.New("invalid destination url")
	ErrNotAllowed       = errors.New("destination host not allowed")
)

// Reason classifies a rejection.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonMissingParameter Reason = "missing_parameter"
	ReasonInvalidURL       Reason = "invalid_url"
	ReasonNotAllowed       Reason = "not_allowed"
)

// Decision is the outcome of Resolve. It is either Allowed with Target set to
// the candidate exactly as given, or rejected with a Reason and Err.
type Decision struct {
	Target string
	Host   string
	Reason Reason
	Err    error
}

// Allowed reports whether the redirect may be issued.
func (d Decision) Allowed() bool {
	return d.Err == nil
}

func rejected(reason Reason, err error, host string) Decision {
	return Decision{Reason: reason, Err: err, Host: host}
}

// Resolve validates candidate against the allow-list.
func (a *AllowList) Resolve(candidate string) Decision {
	if candidate == "" {
		return rejected(ReasonMissingParameter, ErrMissingParameter, "")
	}
	if len(candidate) > MaxURLLength {
		return rejected(ReasonInvalidURL, ErrInvalidURL, "")
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return rejected(ReasonInvalidURL, ErrInvalidURL, "")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return rejected(ReasonInvalidURL, ErrInvalidURL, "")
	}
	if u.Opaque != "" || u.Host == "" {
		return rejected(ReasonInvalidURL, ErrInvalidURL, "")
	}

	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return rejected(ReasonInvalidURL, ErrInvalidURL, "")
	}

	if !a.Allows(host) {
		return rejected(ReasonNotAllowed, ErrNotAllowed, host)
	}

	return Decision{Target: candidate, Host: host}
}
