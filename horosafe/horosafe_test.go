package horosafe

import (
	"errors"
	"net/netip"
	"strings"
	"testing"
)

func TestValidateEndpoint(t *testing.T) {
	orig := lookupHost
	t.Cleanup(func() { lookupHost = orig })
	lookupHost = func(host string) ([]string, error) {
		switch host {
		case "internal.corp":
			return []string{"10.1.2.3"}, nil
		case "api.example.com":
			return []string{"93.184.216.34"}, nil
		}
		return nil, errors.New("no such host")
	}

	tests := []struct {
		url          string
		allowPrivate bool
		want         error
		wantErr      bool
	}{
		{"https://api.example.com/v1", false, nil, false},
		{"http://api.example.com", false, nil, false},
		{"https://unresolvable.invalid/v1", false, nil, false},
		{"ftp://api.example.com/data", false, ErrUnsafeScheme, true},
		{"javascript:alert(1)", false, ErrUnsafeScheme, true},
		{"https:///v1", false, nil, true},
		{"https://user:pw@api.example.com", false, nil, true},
		{"http://127.0.0.1:11434/v1", false, ErrPrivateAddress, true},
		{"http://127.0.0.1:11434/v1", true, nil, false},
		{"http://[::1]/v1", false, ErrPrivateAddress, true},
		{"http://192.168.1.10/v1", false, ErrPrivateAddress, true},
		{"https://internal.corp/v1", false, ErrPrivateAddress, true},
		{"https://internal.corp/v1", true, nil, false},
	}
	for _, tt := range tests {
		err := ValidateEndpoint(tt.url, tt.allowPrivate)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEndpoint(%q, %v) error=%v, wantErr=%v", tt.url, tt.allowPrivate, err, tt.wantErr)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("ValidateEndpoint(%q) = %v, want %v", tt.url, err, tt.want)
		}
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"100.64.1.1", true},
		{"169.254.10.1", true},
		{"0.0.0.0", true},
		{"::ffff:10.0.0.1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"2606:4700::1111", false},
		{"::1", true},
	}
	for _, tt := range tests {
		if got := IsPrivate(netip.MustParseAddr(tt.ip)); got != tt.private {
			t.Errorf("IsPrivate(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := LimitedReadAll(strings.NewReader(data), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(got))
	}

	if _, err = LimitedReadAll(strings.NewReader(data), 50); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
