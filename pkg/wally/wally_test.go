package wally

import "testing"

func TestCorrection(t *testing.T) {
	tests := []struct {
		declared, actual Realm
		want             Realm
		wantOK           bool
	}{
		{RealmShared, RealmServer, RealmServer, true},
		{RealmServer, RealmDev, RealmDev, true},
		{RealmShared, RealmShared, "", false},
		{RealmServer, RealmShared, "", false},
		{RealmDev, RealmShared, "", false},
		{RealmDev, RealmServer, "", false},
		{RealmShared, RealmDev, "", false},
		{RealmServer, RealmServer, "", false},
		{RealmDev, RealmDev, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.declared)+"/"+string(tt.actual), func(t *testing.T) {
			got, ok := Correction(tt.declared, tt.actual)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Correction(%s, %s) = %q, %v; want %q, %v", tt.declared, tt.actual, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSections(t *testing.T) {
	for _, r := range Realms {
		back, ok := RealmForSection(r.Section())
		if !ok || back != r {
			t.Errorf("RealmForSection(%q) = %q, %v", r.Section(), back, ok)
		}
	}
	if _, ok := RealmForSection("package"); ok {
		t.Error("package table is not a dependency section")
	}
}

func TestParseRealm(t *testing.T) {
	if _, ok := ParseRealm("Shared"); ok {
		t.Error("realm matching should be exact")
	}
	if r, ok := ParseRealm("dev"); !ok || r != RealmDev {
		t.Errorf("ParseRealm(dev) = %q, %v", r, ok)
	}
}

func TestIsPublicRegistry(t *testing.T) {
	for _, url := range []string{
		PublicRegistry,
		PublicRegistry + "/",
		PublicRegistry + ".git",
		"  " + PublicRegistry,
	} {
		if !IsPublicRegistry(url) {
			t.Errorf("IsPublicRegistry(%q) = false", url)
		}
	}
	if IsPublicRegistry("https://github.com/acme/index") {
		t.Error("private index reported as public")
	}
}
