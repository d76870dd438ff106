package retry_test

import (
	"bytes"
	"context"
	"errors"
	"golden-diff/internal/retry"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type transportMock struct {
	http.RoundTripper
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

type temporaryError struct {
	s string
}

func (te *temporaryError) Error() string {
	return te.s
}

func (te *temporaryError) Temporary() bool {
	return true
}

// flaky fails the first n round trips with failure and then answers 200,
// recording every request body it saw.
func flaky(n int, failure func() (*http.Response, error), bodies *[]string) *transportMock {
	calls := 0
	return &transportMock{
		fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
			calls++
			if request.Body != nil {
				b, _ := io.ReadAll(request.Body)
				*bodies = append(*bodies, string(b))
			}
			if calls <= n {
				return failure()
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("ok")),
			}, nil
		},
	}
}

func newClient(base http.RoundTripper, maxRetryCount uint) *http.Client {
	return &http.Client{
		Transport: &retry.Transport{
			Base:          base,
			RetryStrategy: retry.NewExponentialBackOff(1*time.Millisecond, 10*time.Millisecond, maxRetryCount, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}
}

func TestTransport_RetriesTemporaryError(t *testing.T) {
	var bodies []string
	client := newClient(flaky(2, func() (*http.Response, error) {
		return nil, &temporaryError{"fake"}
	}, &bodies), 5)

	request, err := http.NewRequest(http.MethodPut, "http://example.invalid/object", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatal(err)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", response.StatusCode)
	}
	if diff := cmp.Diff([]string{"payload", "payload", "payload"}, bodies); diff != "" {
		t.Errorf("request body must be replayed on every attempt (-want +got):\n%s", diff)
	}
}

func TestTransport_RetriesThrottledResponse(t *testing.T) {
	var bodies []string
	client := newClient(flaky(1, func() (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("SlowDown")),
		}, nil
	}, &bodies), 5)

	request, err := http.NewRequest(http.MethodGet, "http://example.invalid/object", nil)
	if err != nil {
		t.Fatal(err)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", response.StatusCode)
	}
}

func TestTransport_GivesUpAfterMaxRetries(t *testing.T) {
	var bodies []string
	client := newClient(flaky(10, func() (*http.Response, error) {
		return nil, &temporaryError{"fake"}
	}, &bodies), 2)

	request, err := http.NewRequest(http.MethodGet, "http://example.invalid/object", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Do(request); err == nil {
		t.Fatalf("Do() succeeded, want error")
	}
}

func TestTransport_DoesNotRetryPermanentError(t *testing.T) {
	calls := 0
	client := newClient(&transportMock{
		fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("fake")
		},
	}, 5)

	request, err := http.NewRequest(http.MethodGet, "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Do(request)
	if err == nil || err.Error() != `Get "/": fake` {
		t.Errorf("Expected fake error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected exactly one attempt, got %d", calls)
	}
}

func TestTransport_DoesNotRetryUnreplayableBody(t *testing.T) {
	calls := 0
	transport := &retry.Transport{
		Base: &transportMock{
			fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
				calls++
				return nil, &temporaryError{"fake"}
			},
		},
		RetryStrategy: retry.NewExponentialBackOff(1*time.Millisecond, 10*time.Millisecond, 5, nil),
		RetryOn:       retry.NewDefaultRetryOn(),
	}

	request, err := http.NewRequest(http.MethodPut, "/", io.NopCloser(strings.NewReader("payload")))
	if err != nil {
		t.Fatal(err)
	}
	request.GetBody = nil

	if _, err := transport.RoundTrip(request); err == nil {
		t.Fatalf("RoundTrip() succeeded, want error")
	}
	if calls != 1 {
		t.Errorf("Expected exactly one attempt, got %d", calls)
	}
}

func TestTransport_ContextCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	transport := &retry.Transport{
		Base: &transportMock{
			fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
				cancel()
				return nil, &temporaryError{"fake"}
			},
		},
		RetryStrategy: retry.NewExponentialBackOff(time.Hour, time.Hour, 5, func(i int64) int64 { return i }),
		RetryOn:       retry.NewDefaultRetryOn(),
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := transport.RoundTrip(request); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
