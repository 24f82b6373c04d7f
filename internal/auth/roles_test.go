package auth

import (
	"errors"
	"slices"
	"testing"
)

func TestRole_Dominates(t *testing.T) {
	tests := []struct {
		r, other Role
		want     bool
	}{
		{RoleRoot, RoleRoot, true},
		{RoleRoot, RoleAdmin, true},
		{RoleRoot, RoleTeacher, true},
		{RoleRoot, RoleStudent, true},
		{RoleRoot, RoleUnassigned, true},
		{RoleAdmin, RoleRoot, false},
		{RoleAdmin, RoleTeacher, true},
		{RoleAdmin, RoleStudent, true},
		{RoleTeacher, RoleStudent, false},
		{RoleStudent, RoleTeacher, false},
		{RoleTeacher, RoleTeacher, true},
		{RoleTeacher, RoleAdmin, false},
		{RoleUnassigned, RoleStudent, false},
		{RoleUnassigned, RoleUnassigned, true},
		{Role("superuser"), RoleUnassigned, false},
		{RoleRoot, Role("superuser"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.r)+">="+string(tt.other), func(t *testing.T) {
			if got := tt.r.Dominates(tt.other); got != tt.want {
				t.Errorf("%s.Dominates(%s) = %v, want %v", tt.r, tt.other, got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}

	for _, s := range []string{"", "Root", "ADMIN", "owner", "guest"} {
		if _, err := ParseRole(s); !errors.Is(err, ErrInvalidRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", s, err)
		}
	}
}

func TestStandardGuards(t *testing.T) {
	tests := []struct {
		name    string
		checker RoleChecker
		want    []Role
	}{
		{"AllowRoot", AllowRoot, []Role{RoleRoot}},
		{"AllowAdmin", AllowAdmin, []Role{RoleRoot, RoleAdmin}},
		{"AllowTeacher", AllowTeacher, []Role{RoleRoot, RoleAdmin, RoleTeacher}},
		{"AllowStudent", AllowStudent, []Role{RoleRoot, RoleAdmin, RoleStudent}},
		{"AllowAuthorized", AllowAuthorized, []Role{RoleRoot, RoleAdmin, RoleTeacher, RoleStudent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.Roles(); !slices.Equal(got, tt.want) {
				t.Errorf("Roles() = %v, want %v", got, tt.want)
			}

			for _, r := range AllRoles {
				user := &User{ID: 1, Username: "u", Role: r}
				got, err := tt.checker.Check(user)
				allowed := slices.Contains(tt.want, r)

				if allowed {
					if err != nil || got != user {
						t.Errorf("Check(%s) = %v, %v; want same user", r, got, err)
					}
				} else if !errors.Is(err, ErrForbidden) {
					t.Errorf("Check(%s) error = %v, want ErrForbidden", r, err)
				}
			}
		})
	}
}

func TestAtLeast_MatchesStandardGuards(t *testing.T) {
	tests := []struct {
		min  Role
		want RoleChecker
	}{
		{RoleRoot, AllowRoot},
		{RoleAdmin, AllowAdmin},
		{RoleTeacher, AllowTeacher},
		{RoleStudent, AllowStudent},
	}

	for _, tt := range tests {
		if got := AtLeast(tt.min).Roles(); !slices.Equal(got, tt.want.Roles()) {
			t.Errorf("AtLeast(%s) = %v, want %v", tt.min, got, tt.want.Roles())
		}
	}

	// Unassigned is dominated by every role but never admitted.
	if got := AtLeast(RoleUnassigned).Roles(); !slices.Equal(got, AllowAuthorized.Roles()) {
		t.Errorf("AtLeast(unassigned) = %v, want %v", got, AllowAuthorized.Roles())
	}
}

func TestRoleChecker_UnassignedNeverAdmitted(t *testing.T) {
	c := NewRoleChecker(RoleUnassigned, RoleStudent, Role("bogus"))

	if c.Allows(RoleUnassigned) {
		t.Error("unassigned must not be admitted to an allow-set")
	}
	if c.Allows(Role("bogus")) {
		t.Error("unknown roles must not be admitted")
	}
	if !c.Allows(RoleStudent) {
		t.Error("student should be admitted")
	}

	if _, err := c.Check(&User{Role: RoleUnassigned}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Check(unassigned) error = %v, want ErrForbidden", err)
	}
}

func TestRoleChecker_ZeroValueAndNil(t *testing.T) {
	var c RoleChecker
	if _, err := c.Check(&User{Role: RoleRoot}); !errors.Is(err, ErrForbidden) {
		t.Errorf("zero RoleChecker should forbid everyone, got %v", err)
	}
	if _, err := AllowAuthorized.Check(nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Check(nil) error = %v, want ErrForbidden", err)
	}
}

func TestCanManageAndAssign(t *testing.T) {
	tests := []struct {
		actor, target Role
		manage        bool
		assign        bool
	}{
		{RoleRoot, RoleRoot, true, true},
		{RoleRoot, RoleAdmin, true, true},
		{RoleAdmin, RoleRoot, false, false},
		{RoleAdmin, RoleAdmin, true, true},
		{RoleAdmin, RoleStudent, true, true},
		{RoleAdmin, RoleUnassigned, true, true},
		{RoleTeacher, RoleStudent, false, false},
		{RoleStudent, RoleStudent, false, false},
		{RoleUnassigned, RoleUnassigned, false, false},
	}

	for _, tt := range tests {
		if got := CanManage(tt.actor, tt.target); got != tt.manage {
			t.Errorf("CanManage(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.manage)
		}
		if got := CanAssign(tt.actor, tt.target); got != tt.assign {
			t.Errorf("CanAssign(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.assign)
		}
	}

	if CanAssign(RoleRoot, Role("bogus")) {
		t.Error("CanAssign should reject unknown roles")
	}
}
