package retry_test

import (
	"errors"
	"fmt"
	"golden-diff/internal/retry"
	"io"
	"net/http"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func retryOn(t *testing.T, s string) *retry.On {
	t.Helper()
	o, err := retry.NewRetryOnFromString(s)
	if err != nil {
		t.Fatalf("NewRetryOnFromString(%q) unexpected error: %v", s, err)
	}
	return o
}

func TestNewRetryOnFromString(t *testing.T) {
	if _, err := retry.NewRetryOnFromString("5xx,bogus"); err == nil {
		t.Errorf("Expected an error for an unknown condition")
	}
	if _, err := retry.NewRetryOnFromString("5xx, 418 ,"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewDefaultRetryOn(t *testing.T) {
	o := retry.NewDefaultRetryOn()

	for statusCode, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusConflict:            true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: false,
		http.StatusNotImplemented:      false,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	} {
		if diff := cmp.Diff(want, o.CheckResponse(&http.Response{StatusCode: statusCode})); diff != "" {
			t.Errorf("CheckResponse(%d) (-want +got):\n%s", statusCode, diff)
		}
	}

	if !o.CheckError(io.ErrUnexpectedEOF) {
		t.Errorf("Expected a truncated response to be retried")
	}
	if o.CheckError(errors.New("permanent")) {
		t.Errorf("Expected a permanent error not to be retried")
	}
}

func TestCheckResponse(t *testing.T) {
	type in struct {
		first *http.Response
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "5xx"),
			in{
				&http.Response{StatusCode: 500},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "5xx"),
			in{
				&http.Response{StatusCode: 404},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "gateway-error"),
			in{
				&http.Response{StatusCode: 500},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "gateway-error"),
			in{
				&http.Response{StatusCode: 503},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "retriable-4xx"),
			in{
				&http.Response{StatusCode: 409},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "throttled"),
			in{
				&http.Response{StatusCode: 429},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "throttled"),
			in{
				&http.Response{StatusCode: 502},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retryOn(t, "418"),
			in{
				&http.Response{StatusCode: 418},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			in{
				&http.Response{StatusCode: 200},
			},
			want{
				false,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.CheckResponse(in.first)
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckError(t *testing.T) {
	tests := []struct {
		name     string
		receiver *retry.On
		in       error
		want     bool
	}{
		{"TemporaryWithConnectFailure", retryOn(t, "connect-failure"), &temporaryError{"fake"}, true},
		{"TemporaryWith5xx", retryOn(t, "5xx"), &temporaryError{"fake"}, true},
		{"TemporaryWithoutCondition", retryOn(t, "gateway-error"), &temporaryError{"fake"}, false},
		{"EOF", retryOn(t, "connect-failure"), io.EOF, true},
		{"UnexpectedEOF", retryOn(t, "connect-failure"), fmt.Errorf("wrapped: %w", io.ErrUnexpectedEOF), true},
		{"Permanent", retryOn(t, "connect-failure"), errors.New("fake"), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, tt.receiver.CheckError(tt.in)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
