package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfUnwrapsThroughWrapping(t *testing.T) {
	base := NotFound("message not found")
	wrapped := fmt.Errorf("loading page: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf = %v, want KindNotFound", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("untagged KindOf = %v, want KindInternal", got)
	}
	if got := KindOf(nil); got != KindInternal {
		t.Fatalf("nil KindOf = %v, want KindInternal", got)
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Unauthenticated("no token"), http.StatusUnauthorized},
		{Forbidden("not a member"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Capacity("team full", 10, 10), http.StatusConflict},
		{Conflict("already accepted"), http.StatusConflict},
		{Invalid("bad input"), http.StatusBadRequest},
		{Unavailable("store down", errors.New("dial refused")), http.StatusServiceUnavailable},
		{Internal("boom", nil), http.StatusInternalServerError},
		{errors.New("untagged"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatusFromError(tc.err); got != tc.want {
			t.Errorf("HTTPStatusFromError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestIsMatchesByKind(t *testing.T) {
	if !Is(Conflict("a"), Conflict("b")) {
		t.Fatal("two conflicts should match under Is")
	}
	if Is(Conflict("a"), NotFound("b")) {
		t.Fatal("different kinds matched under Is")
	}
}

func TestCapacityCarriesOccupancy(t *testing.T) {
	err := Capacity("team member limit reached", 12, 10)
	var e *Error
	if !As(err, &e) {
		t.Fatal("Capacity did not produce an *Error")
	}
	if e.Current != 12 || e.Limit != 10 {
		t.Fatalf("occupancy = %d/%d, want 12/10", e.Current, e.Limit)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindUnavailable, "store unreachable", cause)
	if got := err.Error(); got != "store unreachable: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost under errors.Is")
	}
}
