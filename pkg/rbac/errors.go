package rbac

import "errors"

var (
	ErrUnknownRole         = errors.New("rbac.unknown_role")
	ErrCircularInheritance = errors.New("rbac.circular_inheritance")
	ErrInheritanceTooDeep  = errors.New("rbac.inheritance_too_deep")
)
