package manifest

import "testing"

func TestMatchSpecifier(t *testing.T) {
	tests := []struct {
		in   string
		want Specifier
	}{
		{"", Specifier{}},
		{"acme", Specifier{Author: "acme"}},
		{"acme/", Specifier{Author: "acme", HasFullAuthor: true}},
		{"acme/wid", Specifier{Author: "acme", Name: "wid", HasFullAuthor: true}},
		{"acme/widget@", Specifier{Author: "acme", Name: "widget", HasFullAuthor: true, HasFullName: true}},
		{"acme/widget@1.2.3", Specifier{Author: "acme", Name: "widget", VersionText: "1.2.3", Version: "1.2.3", HasFullAuthor: true, HasFullName: true}},
		{"acme/widget@^1.2", Specifier{Author: "acme", Name: "widget", VersionText: "^1.2", Version: "1.2.0", HasFullAuthor: true, HasFullName: true}},
		{"my-org/some-pkg2@0.1.0-rc.1", Specifier{Author: "my-org", Name: "some-pkg2", VersionText: "0.1.0-rc.1", Version: "0.1.0", HasFullAuthor: true, HasFullName: true}},
		{"9acme/widget@1.0.0", Specifier{}},
		{"acme/9widget@1.0.0", Specifier{Author: "acme", HasFullAuthor: true}},
		{"acme widget", Specifier{Author: "acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MatchSpecifier(tt.in); got != tt.want {
				t.Errorf("MatchSpecifier(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchSpecifierPrefixes(t *testing.T) {
	full := "evaera/promise@4.0.0"
	for i := 0; i <= len(full); i++ {
		s := MatchSpecifier(full[:i])
		if s.HasFullName && !s.HasFullAuthor {
			t.Errorf("%q: full name without full author", full[:i])
		}
		if !s.HasFullName && (s.VersionText != "" || s.Version != "") {
			t.Errorf("%q: version parts set before name is complete", full[:i])
		}
		if !s.HasFullAuthor && s.Name != "" {
			t.Errorf("%q: name set before author is complete", full[:i])
		}
	}
}

func TestMatchSpecifierRoundTrip(t *testing.T) {
	for _, in := range []string{"a/b@1.0.0", "roblox/roact@1.4.4", "sleitnick/signal@^2"} {
		if got := MatchSpecifier(in).String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
	}
}
