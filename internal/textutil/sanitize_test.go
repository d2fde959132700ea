package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My First Reel", "my_first_reel"},
		{"Réel Été", "reel_ete"},
		{"already-safe_token", "already-safe_token"},
		{"___", "unknown"},
		{"", "unknown"},
		{"100% organic!", "100__organic"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
