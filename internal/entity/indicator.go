package entity

import "fmt"

// IndicatorKind identifies the shape of an indicator of compromise
type IndicatorKind string

const (
	KindIPv4   IndicatorKind = "ipv4"
	KindIPv6   IndicatorKind = "ipv6"
	KindDomain IndicatorKind = "domain"
	KindURL    IndicatorKind = "url"
	KindMD5    IndicatorKind = "hash_md5"
	KindSHA1   IndicatorKind = "hash_sha1"
	KindSHA256 IndicatorKind = "hash_sha256"
)

// AllKinds lists every supported indicator kind
func AllKinds() []IndicatorKind {
	return []IndicatorKind{
		KindIPv4, KindIPv6, KindDomain, KindURL,
		KindMD5, KindSHA1, KindSHA256,
	}
}

// IsIP reports whether the kind is an IP address kind
func (k IndicatorKind) IsIP() bool {
	return k == KindIPv4 || k == KindIPv6
}

// IsHash reports whether the kind is a file hash kind
func (k IndicatorKind) IsHash() bool {
	return k == KindMD5 || k == KindSHA1 || k == KindSHA256
}

// Indicator is a classified, immutable IOC. Canonical is the normalized
// representation used as the cache key (lower-cased domains and hashes,
// fragment-stripped URLs, normalized IP literals).
type Indicator struct {
	Value     string        `json:"value"`
	Kind      IndicatorKind `json:"kind"`
	Canonical string        `json:"canonical"`
}

// ClassificationError is returned when a raw string matches no known
// indicator shape. It is the only hard failure the engine surfaces;
// everything downstream degrades to data instead.
type ClassificationError struct {
	Value  string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %q: %s", e.Value, e.Reason)
}
