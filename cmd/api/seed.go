package main

import (
	"context"
	"errors"

	"toko-beras-pos/internal/config"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/sirupsen/logrus"
)

type accessRepos struct {
	privileges repository.PrivilegeRepository
	roles      repository.RoleRepository
	users      repository.UserRepository
}

// seedAccess creates default privileges, roles and the owner account if
// they don't exist yet.
func seedAccess(ctx context.Context, repos accessRepos, cfg config.Config, log logrus.FieldLogger) {
	// 1. Seed privileges first
	if err := repos.privileges.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("failed to seed privileges")
	}

	// 2. Seed roles
	if err := repos.roles.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("failed to seed roles")
	}

	// 3. Assign privileges to roles that have none yet
	for _, def := range model.DefaultRoles {
		role, err := repos.roles.FindByCode(ctx, def.Code)
		if err != nil || len(role.Privileges) > 0 {
			continue
		}
		privileges, err := repos.privileges.FindByCodes(ctx, model.RolePrivileges(def.Code))
		if err != nil {
			log.WithError(err).WithField("role", def.Code).Warn("failed to load privileges")
			continue
		}
		if err := repos.roles.AssignPrivileges(ctx, role, privileges); err != nil {
			log.WithError(err).WithField("role", def.Code).Warn("failed to assign privileges")
			continue
		}
		log.WithFields(logrus.Fields{"role": def.Code, "privileges": len(privileges)}).Info("role privileges assigned")
	}

	// 4. Owner account
	_, err := repos.users.FindByEmail(ctx, cfg.SeedAdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).Warn("failed to look up owner account")
		return
	}
	if cfg.SeedAdminPassword == "" {
		log.Warn("SEED_ADMIN_PASSWORD is empty; owner account not created")
		return
	}
	ownerRole, err := repos.roles.FindByCode(ctx, model.RoleOwner)
	if err != nil {
		log.WithError(err).Warn("owner role missing; owner account not created")
		return
	}

	owner := &model.User{
		Email:      cfg.SeedAdminEmail,
		FullName:   "Pemilik Toko",
		RoleID:     &ownerRole.ID,
		Role:       ownerRole,
		IsActive:   true,
		Privileges: ownerRole.Privileges,
	}
	owner.CreatedBy = "system"
	owner.UpdatedBy = "system"

	if err := owner.SetPassword(cfg.SeedAdminPassword); err != nil {
		log.WithError(err).Warn("failed to hash owner password")
		return
	}
	if err := repos.users.Create(ctx, owner); err != nil {
		log.WithError(err).Warn("failed to create owner account")
		return
	}
	log.WithField("email", owner.Email).Info("owner account created")
}
