// CLAUDE:SUMMARY Input safety helpers: provider endpoint URL checks (scheme, host, private ranges) and bounded upload reads.
// Package horosafe guards the two places where deckforge takes bytes or
// addresses it did not produce: provider base URLs from the config file and
// uploaded files.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned when a URL is not http or https.
	ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")
	// ErrPrivateAddress is returned when a URL targets a loopback, link-local
	// or private address and private targets are not allowed.
	ErrPrivateAddress = errors.New("horosafe: URL targets a private or loopback address")
	// ErrTooLarge is returned by LimitedReadAll when the reader holds more
	// than the cap.
	ErrTooLarge = errors.New("horosafe: input exceeds size cap")
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// lookupHost is swapped in tests.
var lookupHost = net.LookupHost

// ValidateEndpoint checks a provider base URL: http or https, a host, no
// embedded credentials. Unless allowPrivate is set, hosts that are (or
// resolve to) private addresses are rejected. An unresolvable host passes;
// the provider call fails later with a transport error.
func ValidateEndpoint(rawURL string, allowPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("horosafe: URL has no host")
	}
	if u.User != nil {
		return errors.New("horosafe: credentials in URL; use the provider key settings")
	}
	if allowPrivate {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivate(addr) {
			return ErrPrivateAddress
		}
		return nil
	}
	addrs, err := lookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if addr, err := netip.ParseAddr(a); err == nil && IsPrivate(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, a)
		}
	}
	return nil
}

// IsPrivate reports loopback, link-local, unspecified and RFC 1918 / 6598 /
// 4193 addresses.
func IsPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return true
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// LimitedReadAll reads r fully unless it holds more than maxBytes, in which
// case it stops and returns ErrTooLarge.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}
