package service

import "slices"

// Actor is the authenticated user on whose behalf a write happens.
type Actor struct {
	ID         string
	Name       string
	Email      string
	Role       string
	Privileges []string
}

func (a Actor) Can(privilege string) bool {
	return slices.Contains(a.Privileges, privilege)
}

func (a Actor) validate() error {
	if a.ID == "" {
		return invalid("actor is required")
	}
	return nil
}
