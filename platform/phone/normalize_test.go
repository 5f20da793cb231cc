package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{name: "national mexican mobile", input: "55 1234 5678", region: "MX", want: "+525512345678"},
		{name: "already international", input: "+31 6 12345678", region: "MX", want: "+31612345678"},
		{name: "garbage is returned trimmed", input: "  call me  ", region: "MX", want: "call me"},
		{name: "empty stays empty", input: "   ", region: "MX", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input, tc.region); got != tc.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeE164PtrBlankIsNil(t *testing.T) {
	blank := " "
	if got := NormalizeE164Ptr(&blank, "MX"); got != nil {
		t.Fatalf("expected nil for blank input, got %q", *got)
	}
	if got := NormalizeE164Ptr(nil, "MX"); got != nil {
		t.Fatalf("expected nil for nil input")
	}
}
