package authz

import (
	"fmt"
	"sort"
)

type RoleName string

const (
	RoleAnon  RoleName = "anon"
	RoleUser  RoleName = "user"
	RoleAdmin RoleName = "admin"
	RoleStaff RoleName = "staff"

	RoleLecturer              RoleName = "lecturer"
	RolePotentialLecturer     RoleName = "potential_lecturer"
	RoleITFaculty             RoleName = "it_faculty"
	RoleEducationDepartment   RoleName = "education_department"
	RoleSupervisionDepartment RoleName = "supervision_department"

	// RoleSelf is only valid in policy tables. It is never produced by
	// Classify; its predicate is the ownership evaluator.
	RoleSelf RoleName = "self"
)

type predicate func(Identity) bool

// rolePredicates is the closed role vocabulary. Named roles test membership
// in the group carrying the same name.
var rolePredicates = map[RoleName]predicate{
	RoleAnon:  isAnon,
	RoleUser:  isUser,
	RoleAdmin: isAdmin,
	RoleStaff: isStaff,

	RoleLecturer:              memberOf(RoleLecturer),
	RolePotentialLecturer:     memberOf(RolePotentialLecturer),
	RoleITFaculty:             memberOf(RoleITFaculty),
	RoleEducationDepartment:   memberOf(RoleEducationDepartment),
	RoleSupervisionDepartment: memberOf(RoleSupervisionDepartment),
}

func isAnon(id Identity) bool  { return !id.Authenticated }
func isUser(id Identity) bool  { return id.Authenticated }
func isAdmin(id Identity) bool { return id.Authenticated && id.Superuser }
func isStaff(id Identity) bool { return id.Authenticated && id.Staff }

func memberOf(role RoleName) predicate {
	group := string(role)
	return func(id Identity) bool {
		return id.Authenticated && id.InGroup(group)
	}
}

// ParseRole accepts any classifier role plus RoleSelf.
func ParseRole(s string) (RoleName, error) {
	r := RoleName(s)
	if r == RoleSelf {
		return r, nil
	}
	if _, ok := rolePredicates[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleSet is the unordered set of roles an identity holds.
type RoleSet map[RoleName]struct{}

func (s RoleSet) Has(r RoleName) bool {
	_, ok := s[r]
	return ok
}

// Names returns the roles sorted, for logs and responses.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// Classify computes the roles held by id. It never looks at resources.
func Classify(id Identity) RoleSet {
	set := make(RoleSet, 2)
	for role, holds := range rolePredicates {
		if holds(id) {
			set[role] = struct{}{}
		}
	}
	return set
}
