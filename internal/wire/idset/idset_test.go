package idset

import "testing"

// TestContainsTruthTable exercises Contains' truth table: for each base
// shape, every combination of whitelisted/blacklisted membership must
// resolve to the documented Tristate.
func TestContainsTruthTable(t *testing.T) {
	const (
		id       = 42
		other    = 7
		whitelit = id
		blacklit = id
	)

	cases := []struct {
		name string
		set  IDSet
		want Tristate
	}{
		{"white, not blacklisted", NewWhite([]uint64{other}), Allow},
		{"white, blacklisted", NewWhite([]uint64{blacklit}), Deny},
		{"black, not whitelisted", NewBlack([]uint64{other}), Deny},
		{"black, whitelisted", NewBlack([]uint64{whitelit}), Allow},
		{"inherit, neither listed", NewInherit(nil, nil), Defer},
		{"inherit, whitelisted only", NewInherit([]uint64{whitelit}, nil), Allow},
		{"inherit, blacklisted only", NewInherit(nil, []uint64{blacklit}), Deny},
		{"inherit, both listed", NewInherit([]uint64{whitelit}, []uint64{blacklit}), Defer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.set.Contains(id); got != tc.want {
				t.Errorf("Contains(%d) = %v, want %v", id, got, tc.want)
			}
		})
	}
}

func TestBaseString(t *testing.T) {
	cases := map[Base]string{
		BaseInherit: "Inherit",
		BaseWhite:   "White",
		BaseBlack:   "Black",
	}
	for base, want := range cases {
		if got := base.String(); got != want {
			t.Errorf("Base(%d).String() = %q, want %q", base, got, want)
		}
	}
}
