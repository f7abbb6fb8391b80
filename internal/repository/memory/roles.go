package memory

import (
	"context"
	"slices"
	"sync"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
)

// PrivilegeRepo holds the fixed privilege list for STORE_BACKEND=memory.
type PrivilegeRepo struct {
	mu         sync.RWMutex
	privileges []model.Privilege
}

func NewPrivilegeRepo() *PrivilegeRepo {
	return &PrivilegeRepo{}
}

// SeedDefaults is idempotent; ids follow declaration order like a fresh
// database would assign them.
func (r *PrivilegeRepo) SeedDefaults(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.privileges) > 0 {
		return nil
	}
	for i, p := range model.DefaultPrivileges {
		p.ID = uint(i + 1)
		r.privileges = append(r.privileges, p)
	}
	return nil
}

func (r *PrivilegeRepo) FindByCodes(ctx context.Context, codes []string) ([]model.Privilege, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Privilege
	for _, p := range r.privileges {
		if slices.Contains(codes, p.Code) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PrivilegeRepo) FindAll(ctx context.Context) ([]model.Privilege, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.privileges), nil
}

type RoleRepo struct {
	mu    sync.RWMutex
	roles []model.Role
}

func NewRoleRepo() *RoleRepo {
	return &RoleRepo{}
}

func (r *RoleRepo) SeedDefaults(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range model.DefaultRoles {
		if slices.ContainsFunc(r.roles, func(x model.Role) bool { return x.Code == def.Code }) {
			continue
		}
		def.ID = uint(len(r.roles) + 1)
		r.roles = append(r.roles, def)
	}
	return nil
}

func (r *RoleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		role.Privileges = slices.Clone(role.Privileges)
		out = append(out, role)
	}
	return out, nil
}

func (r *RoleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range r.roles {
		if role.Code == code {
			role.Privileges = slices.Clone(role.Privileges)
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *RoleRepo) AssignPrivileges(ctx context.Context, role *model.Role, privileges []model.Privilege) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.roles {
		if r.roles[i].Code == role.Code {
			r.roles[i].Privileges = slices.Clone(privileges)
			role.Privileges = slices.Clone(privileges)
			return nil
		}
	}
	return repository.ErrNotFound
}
