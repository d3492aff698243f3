package httpx

import (
	"context"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestStatusCodeUnwraps(t *testing.T) {
	err := fmt.Errorf("attempt 2: %w", &StatusError{StatusCode: 405})
	if got := StatusCode(err); got != 405 {
		t.Fatalf("StatusCode: want=405 got=%d", got)
	}
	if got := StatusCode(fmt.Errorf("plain")); got != 0 {
		t.Fatalf("StatusCode: want=0 got=%d", got)
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("wrap: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline exceeded should be a timeout")
	}
	if IsTimeout(fmt.Errorf("boom")) {
		t.Fatalf("plain error should not be a timeout")
	}
}

func TestIsConnRefused(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
	if !IsConnRefused(fmt.Errorf("post: %w", err)) {
		t.Fatalf("expected connection refused")
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := map[int]bool{200: false, 404: false, 408: true, 429: true, 500: true, 503: true}
	for code, want := range cases {
		if got := IsRetryableHTTPStatus(code); got != want {
			t.Fatalf("IsRetryableHTTPStatus(%d): want=%v got=%v", code, want, got)
		}
	}
}
