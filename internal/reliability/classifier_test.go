package reliability

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNetworkFailure(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"connection timeout", true},
		{"dial tcp: connection refused", true},
		{"Post \"https://www.googleapis.com\": dial tcp: lookup www.googleapis.com: no such host", true},
		{"server disconnected", true},
		{"Client_Connector_Error", true},
		{"invalid_grant: token has been expired or revoked", false},
		{"Not authenticated", false},
		{"missing summary", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsNetworkFailureMessage(tc.msg); got != tc.want {
			t.Fatalf("IsNetworkFailureMessage(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestIsNetworkFailureErr(t *testing.T) {
	if IsNetworkFailure(nil) {
		t.Fatalf("IsNetworkFailure(nil) = true, want false")
	}
	if !IsNetworkFailure(fmt.Errorf("create event: %w", errors.New("i/o timeout"))) {
		t.Fatalf("wrapped timeout not classified as network failure")
	}
	if IsNetworkFailure(errors.New("invalid_grant")) {
		t.Fatalf("auth failure classified as network failure")
	}
}
