package votes

import (
	"fmt"
	"regexp"
	"sort"
)

// Role is the part a type tag may play in a vote
type Role uint8

const (
	RoleVoter Role = 1 << iota
	RoleSubject
)

var typeTagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-\\/]*$`)

// TypeRegistry maps the type tags stored in the vote table to the roles they
// may play. It is filled once during wiring and only read afterwards.
type TypeRegistry struct {
	roles map[string]Role
}

// NewTypeRegistry returns an empty registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{roles: make(map[string]Role)}
}

// Register adds roles to tag
func (r *TypeRegistry) Register(tag string, roles Role) error {
	if !typeTagPattern.MatchString(tag) {
		return fmt.Errorf("%w: malformed type tag %q", ErrUnknownType, tag)
	}
	if roles&(RoleVoter|RoleSubject) == 0 {
		return fmt.Errorf("type tag %q registered without a role", tag)
	}
	r.roles[tag] |= roles
	return nil
}

// RegisterVoters registers each tag as a voter type
func (r *TypeRegistry) RegisterVoters(tags ...string) error {
	for _, tag := range tags {
		if err := r.Register(tag, RoleVoter); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSubjects registers each tag as a subject type
func (r *TypeRegistry) RegisterSubjects(tags ...string) error {
	for _, tag := range tags {
		if err := r.Register(tag, RoleSubject); err != nil {
			return err
		}
	}
	return nil
}

func (r *TypeRegistry) has(tag string, role Role) bool {
	if r == nil {
		return false
	}
	return r.roles[tag]&role != 0
}

// IsVoter reports whether tag may cast votes
func (r *TypeRegistry) IsVoter(tag string) bool {
	return r.has(tag, RoleVoter)
}

// IsSubject reports whether tag may be voted on
func (r *TypeRegistry) IsSubject(tag string) bool {
	return r.has(tag, RoleSubject)
}

// RequireVoter validates ref as a reference to a registered voter type
func (r *TypeRegistry) RequireVoter(ref Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if !r.IsVoter(ref.Type) {
		return fmt.Errorf("%w: %q is not a voter type", ErrUnknownType, ref.Type)
	}
	return nil
}

// RequireSubject validates ref as a reference to a registered subject type
func (r *TypeRegistry) RequireSubject(ref Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if !r.IsSubject(ref.Type) {
		return fmt.Errorf("%w: %q is not a subject type", ErrUnknownType, ref.Type)
	}
	return nil
}

// Tags lists registered tags having role, sorted
func (r *TypeRegistry) Tags(role Role) []string {
	var tags []string
	for tag, roles := range r.roles {
		if roles&role != 0 {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
