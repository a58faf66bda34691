package rbac

import (
	"context"
	"strings"
)

// Checker answers whether a role holds a permission. A grant ending in "*"
// covers every permission with that prefix; a bare "*" covers everything.
type Checker struct {
	exact    map[string]map[string]bool
	prefixes map[string][]string
}

// NewChecker compiles a role → grants table. nil means RolePermissions.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	c := &Checker{exact: map[string]map[string]bool{}, prefixes: map[string][]string{}}
	for role, grants := range rp {
		c.exact[role] = map[string]bool{}
		for _, g := range grants {
			if p, ok := strings.CutSuffix(g, "*"); ok {
				c.prefixes[role] = append(c.prefixes[role], p)
				continue
			}
			c.exact[role][g] = true
		}
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	if c.exact[role][perm] {
		return true
	}
	for _, p := range c.prefixes[role] {
		if strings.HasPrefix(perm, p) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(roleKey{}).(string)
	return s
}
