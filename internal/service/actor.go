package service

import (
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
)

// Actor the staff member performing an operation
type Actor struct {
	ID   uint
	Role string
}

// Ref the actor id for nullable audit columns
func (a Actor) Ref() *uint {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

// Authorizer decides whether a role holds a privileged permission
type Authorizer interface {
	AllowRole(role string, permission authz.Permission) (bool, error)
}

func allowed(authorizer Authorizer, actor Actor, permission authz.Permission) (bool, error) {
	if authorizer == nil {
		authorizer = authz.StaticPolicy{}
	}
	return authorizer.AllowRole(actor.Role, permission)
}

func requirePermission(authorizer Authorizer, actor Actor, permission authz.Permission) error {
	ok, err := allowed(authorizer, actor, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
