// Package classify turns raw user input into typed indicators.
// It is pure: no network, no clock, no configuration.
package classify

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

var (
	hexRe    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	domainRe = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}$`)
)

// Classify determines the kind of a raw indicator and returns it in
// canonical form. Detection order matters: IP literals win over
// domains, hashes over domains, URLs require an explicit scheme.
func Classify(raw string) (entity.Indicator, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return entity.Indicator{}, &entity.ClassificationError{Value: raw, Reason: "empty input"}
	}

	if addr, err := netip.ParseAddr(value); err == nil {
		kind := entity.KindIPv4
		if addr.Is6() && !addr.Is4In6() {
			kind = entity.KindIPv6
		}
		return entity.Indicator{Value: value, Kind: kind, Canonical: addr.Unmap().String()}, nil
	}

	if hexRe.MatchString(value) {
		var kind entity.IndicatorKind
		switch len(value) {
		case 32:
			kind = entity.KindMD5
		case 40:
			kind = entity.KindSHA1
		case 64:
			kind = entity.KindSHA256
		}
		if kind != "" {
			return entity.Indicator{Value: value, Kind: kind, Canonical: strings.ToLower(value)}, nil
		}
	}

	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return entity.Indicator{}, &entity.ClassificationError{Value: raw, Reason: "malformed URL"}
		}
		return entity.Indicator{Value: value, Kind: entity.KindURL, Canonical: canonicalURL(u)}, nil
	}

	if host := strings.TrimSuffix(value, "."); domainRe.MatchString(host) {
		return entity.Indicator{Value: value, Kind: entity.KindDomain, Canonical: strings.ToLower(host)}, nil
	}

	return entity.Indicator{}, &entity.ClassificationError{Value: raw, Reason: "not a recognized indicator type"}
}

// canonicalURL lower-cases the scheme and host and drops the fragment.
// Path, query and port are preserved as given.
func canonicalURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
