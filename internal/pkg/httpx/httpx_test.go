package httpx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad request"), false},
		{"429", WithStatus(429, errors.New("slow down")), true},
		{"503 wrapped", fmt.Errorf("call: %w", WithStatus(503, errors.New("unavailable"))), true},
		{"400", WithStatus(400, errors.New("bad")), false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return WithStatus(502, errors.New("bad gateway"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
}

func TestDoStopsOnPermanentFailureAndBudget(t *testing.T) {
	calls := 0
	perm := WithStatus(401, errors.New("unauthorized"))
	err := Do(context.Background(), RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Fatalf("permanent: calls=%d err=%v", calls, err)
	}

	calls = 0
	err = Do(context.Background(), RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return WithStatus(500, errors.New("boom"))
	})
	if err == nil || calls != 3 {
		t.Fatalf("budget: calls=%d err=%v", calls, err)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := JitterSleep(base)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("jitter out of bounds: %s", d)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatalf("zero base must not sleep")
	}
}
