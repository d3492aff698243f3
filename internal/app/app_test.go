package app

import (
	"testing"

	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
)

func TestBreakerStateCounts(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})
	r.Get("a")
	r.Get("b").OnFailure()
	r.Get("c").OnFailure()

	counts := breakerStateCounts(r)
	if counts["CLOSED"] != 1 || counts["OPEN"] != 2 || counts["HALF_OPEN"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
