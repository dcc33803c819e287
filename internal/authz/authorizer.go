package authz

import (
	"errors"
	"fmt"
	"strings"
)

var ErrForbidden = errors.New("forbidden")

type DenialKind string

const (
	DenialRole       DenialKind = "role"
	DenialPermission DenialKind = "permission"
)

// DenialError names the requirement the caller did not meet.
type DenialError struct {
	Kind     DenialKind
	Required []string
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("missing required %s: one of [%s]", e.Kind, strings.Join(e.Required, ", "))
}

func (e *DenialError) Is(target error) bool {
	return target == ErrForbidden
}

// Requirement is the declarative access metadata of an operation. Roles and
// Permissions are each any-of sets; an empty set imposes nothing.
type Requirement struct {
	Roles       []string
	Permissions []string
}

func RequireRoles(roles ...string) Requirement {
	return Requirement{Roles: roles}
}

func RequirePermissions(slugs ...string) Requirement {
	return Requirement{Permissions: slugs}
}

// Check evaluates the role requirement, then the permission requirement.
func Check(id Identity, req Requirement) error {
	if err := CheckRoles(id, req.Roles); err != nil {
		return err
	}
	return CheckPermissions(id, req.Permissions)
}

func IsAllowed(id Identity, req Requirement) bool {
	return Check(id, req) == nil
}

func CheckRoles(id Identity, roles []string) error {
	if len(roles) == 0 {
		if id == nil {
			return ErrForbidden
		}
		return nil
	}

	switch v := id.(type) {
	case Root:
		return nil
	case Standard:
		if v.Role.Name != "" {
			for _, role := range roles {
				if role == v.Role.Name {
					return nil
				}
			}
		}
	}
	return &DenialError{Kind: DenialRole, Required: roles}
}

func CheckPermissions(id Identity, slugs []string) error {
	if len(slugs) == 0 {
		if id == nil {
			return ErrForbidden
		}
		return nil
	}

	switch v := id.(type) {
	case Root:
		return nil
	case Standard:
		for _, slug := range slugs {
			if v.Role.Has(slug) {
				return nil
			}
		}
	}
	return &DenialError{Kind: DenialPermission, Required: slugs}
}
