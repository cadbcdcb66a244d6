// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the admin user (admin@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"testhub/backend/internal/config"
	"testhub/backend/internal/db"
	permissiondomain "testhub/backend/internal/permission/domain"
	permissionrepo "testhub/backend/internal/permission/repository"
	"testhub/backend/internal/security"
	userdomain "testhub/backend/internal/user/domain"
	userrepo "testhub/backend/internal/user/repository"
)

const (
	adminEmail    = "admin@example.com"
	adminName     = "Administrator"
	adminPassword = "admin12345"

	memberEmail    = "member@example.com"
	memberName     = "Member User"
	memberPassword = "password123"

	devProjectID = int64(1)
)

// modules lists every permission module; the admin role gets read+write on
// each, the member role read-only on the non-admin ones.
var modules = []string{
	permissiondomain.ModuleAdmin,
	permissiondomain.ModuleCase,
	permissiondomain.ModuleBug,
	permissiondomain.ModulePlan,
	permissiondomain.ModuleElement,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	perms := permissionrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(security.HashParams{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})

	adminRole := &permissiondomain.Role{Name: "admin", ProjectID: devProjectID}
	if err := perms.CreateRole(ctx, adminRole); err != nil {
		log.Fatalf("create admin role: %v", err)
	}
	memberRole := &permissiondomain.Role{Name: "member", ProjectID: devProjectID}
	if err := perms.CreateRole(ctx, memberRole); err != nil {
		log.Fatalf("create member role: %v", err)
	}

	for _, module := range modules {
		for _, scope := range []string{permissiondomain.ScopeRead, permissiondomain.ScopeWrite} {
			if err := perms.GrantPermission(ctx, &permissiondomain.Permission{
				RoleID: adminRole.ID,
				Module: module,
				Scope:  scope,
			}); err != nil {
				log.Fatalf("grant %s:%s to admin: %v", module, scope, err)
			}
		}
		if module == permissiondomain.ModuleAdmin {
			continue
		}
		if err := perms.GrantPermission(ctx, &permissiondomain.Permission{
			RoleID: memberRole.ID,
			Module: module,
			Scope:  permissiondomain.ScopeRead,
		}); err != nil {
			log.Fatalf("grant %s:read to member: %v", module, err)
		}
	}

	if err := seedUser(ctx, users, hasher, adminName, adminEmail, adminPassword, adminRole.ID); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if err := seedUser(ctx, users, hasher, memberName, memberEmail, memberPassword, memberRole.ID); err != nil {
		log.Fatalf("seed member: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Admin login: %s / %s\n", adminEmail, adminPassword)
	fmt.Printf("Member login: %s / %s\n", memberEmail, memberPassword)
}

func seedUser(ctx context.Context, users userrepo.Repository, hasher *security.Hasher, name, email, password string, roleID int64) error {
	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Password:  hash,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return users.CreateWithRole(ctx, u, roleID, devProjectID)
}
