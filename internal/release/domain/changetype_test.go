package domain

import "testing"

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeNone, "none"},
		{ChangeDependency, "dependency"},
		{ChangePatch, "patch"},
		{ChangeMinor, "minor"},
		{ChangeMajor, "major"},
		{ChangeType(99), "unknown"},
		{ChangeType(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ct.String(); got != tt.want {
				t.Errorf("ChangeType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChangeType_TotalOrder(t *testing.T) {
	// The release logic compares change types numerically, so the full
	// ordering must hold for every pair.
	ordered := []ChangeType{ChangeNone, ChangeDependency, ChangePatch, ChangeMinor, ChangeMajor}
	for i, lo := range ordered {
		for _, hi := range ordered[i+1:] {
			if !(lo < hi) {
				t.Errorf("expected %s < %s", lo, hi)
			}
			if MaxChangeType(lo, hi) != hi || MaxChangeType(hi, lo) != hi {
				t.Errorf("MaxChangeType(%s, %s) should be %s", lo, hi, hi)
			}
		}
	}
}

func TestParseChangeType(t *testing.T) {
	for _, name := range []string{"none", "dependency", "patch", "minor", "major"} {
		ct, err := ParseChangeType(name)
		if err != nil {
			t.Fatalf("ParseChangeType(%q) returned error: %v", name, err)
		}
		if ct.String() != name {
			t.Errorf("ParseChangeType(%q).String() = %q", name, ct.String())
		}
	}

	if _, err := ParseChangeType("huge"); err == nil {
		t.Error("ParseChangeType(\"huge\") should fail")
	}
}

func TestChangeType_Gates(t *testing.T) {
	tests := []struct {
		ct              ChangeType
		requiresBump    bool
		requiresRelease bool
	}{
		{ChangeNone, false, false},
		{ChangeDependency, false, true},
		{ChangePatch, true, true},
		{ChangeMinor, true, true},
		{ChangeMajor, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			if got := tt.ct.RequiresBump(); got != tt.requiresBump {
				t.Errorf("RequiresBump() = %v, want %v", got, tt.requiresBump)
			}
			if got := tt.ct.RequiresRelease(); got != tt.requiresRelease {
				t.Errorf("RequiresRelease() = %v, want %v", got, tt.requiresRelease)
			}
		})
	}
}
