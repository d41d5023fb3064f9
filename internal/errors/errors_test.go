package errors

import (
	stderrors "errors"
	"testing"
)

func TestNewRegisteredCode(t *testing.T) {
	err := New(CodeConnectionLost)
	if err.Category != CategoryTransport {
		t.Errorf("Category = %v, want transport", err.Category)
	}
	if err.Code != CodeConnectionLost {
		t.Errorf("Code = %q, want %q", err.Code, CodeConnectionLost)
	}
	if err.Error() == "" {
		t.Error("Error() is empty")
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("E999")
	if err.Code != "E999" || err.Message != "unknown error" {
		t.Errorf("New(E999) = %+v", err)
	}
}

func TestWrapUnwrap(t *testing.T) {
	inner := stderrors.New("dial tcp: refused")
	err := New(CodeConnectFailed).Wrap(inner)
	if !stderrors.Is(err, inner) {
		t.Error("errors.Is() does not see the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeConnectFailed) != nil {
		t.Error("FromError(nil) != nil")
	}

	le := New(CodeRateLimited)
	if got := FromError(le, CodeConnectFailed); got != le {
		t.Error("FromError(*Error) did not pass through")
	}
}

func TestClassifyWireFailure(t *testing.T) {
	tests := []struct {
		message string
		want    Classification
	}{
		{"invalid_nick", ClassBadInput},
		{"bad_channel_key", ClassBadInput},
		{"op_required", ClassPermission},
		{"too_fast", ClassRateLimited},
		{"something_new", ClassUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			if got := ClassifyWireFailure(tc.message); got != tc.want {
				t.Errorf("ClassifyWireFailure(%q) = %v, want %v", tc.message, got, tc.want)
			}
		})
	}
}

func TestCommandFailure(t *testing.T) {
	err := CommandFailure("too_fast")
	if err.Code != CodeRateLimited {
		t.Errorf("Code = %q, want %q", err.Code, CodeRateLimited)
	}
	if err.Classification != ClassRateLimited {
		t.Errorf("Classification = %v, want RateLimited", err.Classification)
	}
	if err.Detail != "too_fast" {
		t.Errorf("Detail = %q, want raw message", err.Detail)
	}
}

func TestIsAuthFailure(t *testing.T) {
	if !IsAuthFailure("auth") || !IsAuthFailure("invalid_session") {
		t.Error("auth failures not recognized")
	}
	if IsAuthFailure("too_fast") {
		t.Error("too_fast misclassified as auth failure")
	}
}
