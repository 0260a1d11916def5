package safe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"rec_01J9Z", false},
		{"checkout-flow.v2", false},
		{"", true},
		{"../etc", true},
		{".hidden", true},
		{"a/b", true},
		{"with space", true},
		{"café", true},
		{strings.Repeat("a", MaxIdentifierLen+1), true},
	}
	for _, tt := range tests {
		err := ValidateIdentifier(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateIdentifier(%q) error=%v, wantErr=%v", tt.id, err, tt.wantErr)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/login", false},
		{"http://localhost:8080/", false},
		{"file:///tmp/form.html", false},
		{"javascript:alert(1)", true},
		{"ftp://example.com/x", true},
		{"https:///nohost", true},
		{"example.com", true},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url, PageSchemes...)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
	if err := ValidateURL("file:///x", "http", "https"); !errors.Is(err, ErrUnsafeScheme) {
		t.Errorf("file scheme for webhook: got %v", err)
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, truncated, err := LimitedReadAll(strings.NewReader("hello world"), 5)
	if err != nil || string(data) != "hello" || !truncated {
		t.Errorf("got %q %v %v", data, truncated, err)
	}
	data, truncated, err = LimitedReadAll(strings.NewReader("hi"), 5)
	if err != nil || string(data) != "hi" || truncated {
		t.Errorf("got %q %v %v", data, truncated, err)
	}
}
