package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "national format", in: "0812-3456-7890", want: "+6281234567890"},
		{name: "already e164", in: "+6281234567890", want: "+6281234567890"},
		{name: "foreign with prefix", in: "+31 6 12345678", want: "+31612345678"},
		{name: "unparseable kept", in: " call me ", want: "call me"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.in); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePtr(t *testing.T) {
	empty := ""
	if NormalizePtr(nil) != nil || NormalizePtr(&empty) != nil {
		t.Fatalf("expected nil for missing numbers")
	}
}
