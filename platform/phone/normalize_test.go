package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input  string
		region string
		want   string
	}{
		{"+56 9 8765 4321", "CL", "+56987654321"},
		{"9 8765 4321", "CL", "+56987654321"},
		{"  ", "CL", ""},
		{"not a phone", "CL", "not a phone"},
		{" 12 ", "", "12"},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input, tc.region); got != tc.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
		}
	}
}
