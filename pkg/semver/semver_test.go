package semver

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Version
		wantOK bool
	}{
		{"1.2.3", Version{Major: 1, Minor: 2, Patch: 3}, true},
		{"v0.11.0", Version{Minor: 11}, true},
		{"1.0.0-rc.1", Version{Major: 1, Prerelease: "rc.1"}, true},
		{"1.0.0-rc.1+build.5", Version{Major: 1, Prerelease: "rc.1", Build: "build.5"}, true},
		{"1.2", Version{}, false},
		{"01.2.3", Version{}, false},
		{"latest", Version{}, false},
		{"", Version{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1.2.3", "1.2.3", true},
		{"^1.2", "1.2.0", true},
		{"1", "1.0.0", true},
		{"v3-beta", "3.0.0", true},
		{"0.3.1-rc.2", "0.3.1", true},
		{"1.2.", "1.2.0", true},
		{">= 4.5.6, < 5", "4.5.6", true},
		{"", "", false},
		{"latest", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Coerce(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Coerce(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		desired, available string
		want               bool
	}{
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.2", false},
		{"1.2.3", "1.3.0", true},
		{"1.2.3", "2.0.0", false},
		{"0.3.1", "0.3.5", true},
		{"0.3.1", "0.4.0", false},
		{"0.3.1", "0.3.0", false},
		{"^1.2.3", "1.9.9", true},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"=1.2.3", "1.2.4", false},
		{">=1.0.0, <2.0.0", "1.5.0", true},
		{">=1.0.0, <2.0.0", "2.0.0", false},
		{"*", "9.9.9", true},
		{"1.0.0", "1.1.0-beta", false},
		{"1.1.0-beta.1", "1.1.0-beta.2", true},
		{"1", "1.4.0", true},
		{"garbage", "garbage", true},
		{"garbage", "1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.desired+"~"+tt.available, func(t *testing.T) {
			if got := IsCompatible(tt.desired, tt.available); got != tt.want {
				t.Errorf("IsCompatible(%q, %q) = %v, want %v", tt.desired, tt.available, got, tt.want)
			}
		})
	}
}

func TestIsCompatibleAny(t *testing.T) {
	versions := []string{"2.0.0", "1.4.1", "1.0.0"}
	if !IsCompatibleAny("1.2.0", versions) {
		t.Error("1.2.0 should be satisfied by 1.4.1")
	}
	if IsCompatibleAny("3.0.0", versions) {
		t.Error("3.0.0 should not be satisfied")
	}
	if IsCompatibleAny("1.0.0", nil) {
		t.Error("empty list satisfies nothing")
	}
}

func TestSortDescending(t *testing.T) {
	in := []string{"1.0.0", "1.10.0", "1.2.0", "2.0.0-rc.1", "bogus", "2.0.0"}
	got := SortDescending(in)
	want := []string{"2.0.0", "2.0.0-rc.1", "1.10.0", "1.2.0", "1.0.0", "bogus"}
	if !slices.Equal(got, want) {
		t.Errorf("SortDescending = %v, want %v", got, want)
	}
	if in[0] != "1.0.0" {
		t.Error("SortDescending must not modify its input")
	}
}

func TestLatest(t *testing.T) {
	got, ok := Latest([]string{"1.0.0", "2.0.0-rc.1", "1.5.0"})
	if !ok || got != "1.5.0" {
		t.Errorf("Latest = %q, %v; want stable 1.5.0", got, ok)
	}

	got, ok = Latest([]string{"0.1.0-alpha", "0.1.0-beta"})
	if !ok || got != "0.1.0-beta" {
		t.Errorf("Latest = %q, %v; want 0.1.0-beta", got, ok)
	}

	if _, ok := Latest(nil); ok {
		t.Error("Latest(nil) should report false")
	}
}

func TestLatestCompatible(t *testing.T) {
	versions := []string{"1.0.0", "1.3.2", "2.1.0"}
	got, ok := LatestCompatible("1.1.0", versions)
	if !ok || got != "1.3.2" {
		t.Errorf("LatestCompatible = %q, %v; want 1.3.2", got, ok)
	}
}

func TestOutdated(t *testing.T) {
	versions := []string{"0.9.0", "1.0.0", "1.4.0", "2.0.0"}

	tests := []struct {
		desired    string
		wantLatest string
		wantOK     bool
	}{
		{"1.0.0", "2.0.0", true},
		{"2.0.0", "", false},
		{">=1.0.0", "", false},
		{"3.0.0", "", false},
		{"*", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.desired, func(t *testing.T) {
			latest, ok := Outdated(tt.desired, versions)
			if latest != tt.wantLatest || ok != tt.wantOK {
				t.Errorf("Outdated(%q) = %q, %v; want %q, %v", tt.desired, latest, ok, tt.wantLatest, tt.wantOK)
			}
		})
	}
}
