package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"testhub/backend/internal/permission/domain"
)

func TestRoleIDsForUser(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()
	repo := NewPostgresRepository(sqldb)

	mock.ExpectQuery(`SELECT role_id FROM user_role_relations`).
		WithArgs("u1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role_id"}).AddRow(1).AddRow(2))

	ids, err := repo.RoleIDsForUser(context.Background(), "u1", 7)
	if err != nil {
		t.Fatalf("RoleIDsForUser: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ids = %v", ids)
	}
}

func TestPermissionsForRoles_EmptyShortCircuits(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()
	repo := NewPostgresRepository(sqldb)

	perms, err := repo.PermissionsForRoles(context.Background(), nil)
	if err != nil {
		t.Fatalf("PermissionsForRoles: %v", err)
	}
	if perms != nil {
		t.Errorf("perms = %v, want nil without querying", perms)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeleteRole_UnlinksInOneTransaction(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()
	repo := NewPostgresRepository(sqldb)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM permissions WHERE role_id = \$1`).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM user_role_relations WHERE role_id = \$1`).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM roles WHERE id = \$1`).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.DeleteRole(context.Background(), 3); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeleteRole_RollsBackOnFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()
	repo := NewPostgresRepository(sqldb)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM permissions WHERE role_id = \$1`).
		WithArgs(int64(3)).WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if err := repo.DeleteRole(context.Background(), 3); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreateRoleAndGrant(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()
	repo := NewPostgresRepository(sqldb)

	mock.ExpectQuery(`INSERT INTO roles`).
		WithArgs("tester", int64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(`INSERT INTO permissions`).
		WithArgs(int64(4), "case", "read").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	role := &domain.Role{Name: "tester", ProjectID: 7}
	if err := repo.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.ID != 4 {
		t.Errorf("role id = %d, want 4", role.ID)
	}
	p := &domain.Permission{RoleID: role.ID, Module: "case", Scope: "read"}
	if err := repo.GrantPermission(context.Background(), p); err != nil {
		t.Fatalf("GrantPermission: %v", err)
	}
	if p.ID != 9 {
		t.Errorf("permission id = %d, want 9", p.ID)
	}
}
