package authz

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Grant is one (role, requiresOwnership) pair of an action policy.
type Grant struct {
	Role              RoleName
	RequiresOwnership bool
}

// DefaultGrants apply to actions without a declared entry: logged-in users.
var DefaultGrants = []Grant{{Role: RoleUser}}

// Policies maps action identifiers ("<group>.<verb>") to their grants. It is
// read-only once parsed.
type Policies struct {
	rules map[string][]Grant
}

// policyFile is the on-disk shape:
//
//	lecturers:
//	  retrieve,update:
//	    education_department: false
//	    self: true
type policyFile map[string]map[string]map[string]bool

func LoadPolicies(path string) (*Policies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParsePolicies(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func ParsePolicies(data []byte) (*Policies, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, err
	}
	p := &Policies{rules: make(map[string][]Grant)}
	var errs []error
	for group, entries := range pf {
		group = strings.TrimSpace(group)
		if group == "" {
			errs = append(errs, errors.New("empty action group"))
			continue
		}
		for aliases, grantMap := range entries {
			grants, err := parseGrants(grantMap)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %q: %w", group, aliases, err))
				continue
			}
			for _, verb := range strings.Split(aliases, ",") {
				verb = strings.TrimSpace(verb)
				if verb == "" {
					errs = append(errs, fmt.Errorf("%s %q: empty action name", group, aliases))
					continue
				}
				action := group + "." + verb
				if _, dup := p.rules[action]; dup {
					errs = append(errs, fmt.Errorf("action %s declared more than once", action))
					continue
				}
				p.rules[action] = grants
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

func parseGrants(m map[string]bool) ([]Grant, error) {
	if len(m) == 0 {
		return nil, errors.New("no roles granted")
	}
	grants := make([]Grant, 0, len(m))
	for name, owned := range m {
		role, err := ParseRole(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		grants = append(grants, Grant{Role: role, RequiresOwnership: owned || role == RoleSelf})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Role < grants[j].Role })
	return grants, nil
}

func (p *Policies) Lookup(action string) ([]Grant, bool) {
	if p == nil {
		return nil, false
	}
	g, ok := p.rules[action]
	return g, ok
}

// Validate fails on declared actions that no route serves, which are almost
// always typos that would otherwise fall through to the default policy.
func (p *Policies) Validate(known []string) error {
	set := make(map[string]struct{}, len(known))
	for _, a := range known {
		set[a] = struct{}{}
	}
	var unknown []string
	for action := range p.rules {
		if _, ok := set[action]; !ok {
			unknown = append(unknown, action)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("policies declare unknown actions: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Undeclared lists known actions that run under DefaultGrants.
func (p *Policies) Undeclared(known []string) []string {
	var out []string
	for _, a := range known {
		if _, ok := p.Lookup(a); !ok {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Policies) Actions() []string {
	out := make([]string, 0, len(p.rules))
	for a := range p.rules {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
