package auth

import (
	"errors"
	"testing"

	"github.com/danmuck/touch2tuio/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFromToken(t *testing.T) {
	testlog.Start(t)
	if err := FromToken("  ").Validate("anything"); err != nil {
		t.Fatalf("blank token should be open, got %v", err)
	}
	v := FromToken(" s3cret ")
	if err := v.Validate("s3cret"); err != nil {
		t.Fatalf("expected trimmed token accepted, got %v", err)
	}
	if err := v.Validate(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
