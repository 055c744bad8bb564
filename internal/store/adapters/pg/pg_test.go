package pg

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

func newMock(t *testing.T) (*Conn, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewConn(mock), mock
}

var pluginColNames = []string{
	"id", "grp", "plugin_secret_hash", "owner_username", "authorized",
	"rolling_key_hash", "rolling_key_version", "rolling_key_created_at", "pending_rolling_key",
	"auth_request_token_hash", "auth_request_expiry", "created_at", "last_seen",
	"authorized_at", "revoked_at", "version", "updated_at",
}

func pluginRow(rows *pgxmock.Rows, id, grp, owner string, version int64, ts time.Time) *pgxmock.Rows {
	return rows.AddRow(id, grp, "secret-hash", owner, owner != "",
		"", int64(0), (*time.Time)(nil), "",
		"", (*time.Time)(nil), ts, ts,
		(*time.Time)(nil), (*time.Time)(nil), version, ts)
}

func TestPluginRepo_Create_OK_and_Conflict(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()
	p := &repository.PluginInstance{ID: "plugin_1", Group: repository.UnownedGroup, PluginSecretHash: "h", CreatedAt: now, LastSeen: now}

	args := []any{p.ID, p.Group, "h", "", false, "", int64(0), pgxmock.AnyArg(), "", "", pgxmock.AnyArg(),
		now, now, pgxmock.AnyArg(), pgxmock.AnyArg()}

	mock.ExpectQuery(qPluginInsert).WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(1), now))
	require.NoError(t, conn.Plugins().Create(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	mock.ExpectQuery(qPluginInsert).WithArgs(args...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, conn.Plugins().Create(ctx, p), repository.ErrConflict)
}

func TestPluginRepo_GetAndFindByID(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	mock.ExpectQuery(qPluginGet).WithArgs("plugin_1", "alice").
		WillReturnRows(pluginRow(pgxmock.NewRows(pluginColNames), "plugin_1", "alice", "alice", 3, ts))
	p, err := conn.Plugins().Get(ctx, "plugin_1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.OwnerUsername)
	assert.True(t, p.Authorized)
	assert.Equal(t, int64(3), p.Version)
	assert.Nil(t, p.AuthRequestExpiry)

	mock.ExpectQuery(qPluginFindByID).WithArgs("plugin_x").WillReturnError(pgx.ErrNoRows)
	_, err = conn.Plugins().FindByID(ctx, "plugin_x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPluginRepo_ListByGroup(t *testing.T) {
	conn, mock := newMock(t)
	ts := time.Now().UTC()

	rows := pgxmock.NewRows(pluginColNames)
	pluginRow(rows, "plugin_1", "alice", "alice", 2, ts)
	pluginRow(rows, "plugin_2", "alice", "alice", 5, ts)
	mock.ExpectQuery(qPluginList).WithArgs("alice").WillReturnRows(rows)

	list, err := conn.Plugins().ListByGroup(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "plugin_2", list[1].ID)
}

func TestPluginRepo_Update_VersionPrecondition(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()
	ts := time.Now().UTC()
	p := &repository.PluginInstance{ID: "plugin_1", Group: "alice", OwnerUsername: "alice", Authorized: true,
		RollingKeyHash: "k2", RollingKeyVersion: 2, LastSeen: ts, Version: 4}

	args := []any{"plugin_1", "alice", int64(4), "", "alice", true, "k2", int64(2), pgxmock.AnyArg(), "",
		"", pgxmock.AnyArg(), ts, pgxmock.AnyArg(), pgxmock.AnyArg()}

	// OK
	mock.ExpectQuery(qPluginUpdate).WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(5), ts))
	require.NoError(t, conn.Plugins().Update(ctx, p))
	assert.Equal(t, int64(5), p.Version)

	// Versión vieja: la fila existe pero no matchea
	p.Version = 4
	mock.ExpectQuery(qPluginUpdate).WithArgs(args...).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(qPluginExists).WithArgs("plugin_1", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, conn.Plugins().Update(ctx, p), repository.ErrPreconditionFailed)

	// No existe
	mock.ExpectQuery(qPluginUpdate).WithArgs(args...).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(qPluginExists).WithArgs("plugin_1", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, conn.Plugins().Update(ctx, p), repository.ErrNotFound)
}

func TestPluginRepo_Delete(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(qPluginDelete).WithArgs("plugin_1", repository.UnownedGroup).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, conn.Plugins().Delete(ctx, "plugin_1", repository.UnownedGroup))

	mock.ExpectExec(qPluginDelete).WithArgs("plugin_1", repository.UnownedGroup).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, conn.Plugins().Delete(ctx, "plugin_1", repository.UnownedGroup), repository.ErrNotFound)
}

func TestTokenRepo_CreateGetDelete(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()
	ts := time.Now().UTC()
	tok := &repository.APIToken{ID: "token_1", Username: "alice", Name: "cli", TokenHash: "th",
		Permissions: []string{"entries:read"}, CreatedAt: ts}

	mock.ExpectExec(qTokenInsert).
		WithArgs("token_1", "alice", "cli", "th", []string{"entries:read"}, ts, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, conn.APITokens().Create(ctx, tok))

	mock.ExpectQuery(qTokenByHash).WithArgs("th").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "name", "token_hash", "permissions", "created_at", "last_used", "expires_at"}).
			AddRow("token_1", "alice", "cli", "th", []string{"entries:read"}, ts, (*time.Time)(nil), (*time.Time)(nil)))
	got, err := conn.APITokens().GetByHash(ctx, "th")
	require.NoError(t, err)
	assert.Equal(t, []string{"entries:read"}, got.Permissions)
	assert.Nil(t, got.ExpiresAt)

	mock.ExpectQuery(qTokenByHash).WithArgs("nope").WillReturnError(pgx.ErrNoRows)
	_, err = conn.APITokens().GetByHash(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mock.ExpectExec(qTokenDelete).WithArgs("token_1", "bob").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, conn.APITokens().Delete(ctx, "token_1", "bob"), repository.ErrNotFound)
}

func TestUserRepo_EnableTOTP(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(qUserEnable).WithArgs("alice", "enc", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, conn.Users().EnableTOTP(ctx, "alice", "enc", 7))

	mock.ExpectExec(qUserEnable).WithArgs("alice", "stale", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(qUserExists).WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, conn.Users().EnableTOTP(ctx, "alice", "stale", 7), repository.ErrPreconditionFailed)
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	conn, mock := newMock(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	mock.ExpectExec(qUserInsert).WithArgs("alice", "hash", ts).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, conn.Users().Create(ctx, &repository.User{Username: "alice", PasswordHash: "hash", CreatedAt: ts}), repository.ErrConflict)

	counter := int64(42)
	mock.ExpectQuery(qUserGet).WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"username", "password_hash", "totp_enabled", "totp_secret", "totp_secret_pending", "totp_last_counter", "created_at"}).
			AddRow("alice", "hash", true, "enc", "", &counter, ts))
	u, err := conn.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.TOTPEnabled)
	require.NotNil(t, u.TOTPLastCounter)
	assert.Equal(t, int64(42), *u.TOTPLastCounter)
}

func TestEntryRepo_ListByUser(t *testing.T) {
	conn, mock := newMock(t)
	ts := time.Now().UTC()
	folder := "work"

	mock.ExpectQuery(qEntriesByUser).WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "name", "login_username", "password", "url", "notes", "folder", "created_at"}).
			AddRow("e1", "alice", "GitHub", "al", "enc", "https://github.com", "", &folder, ts).
			AddRow("e2", "alice", "", "", "", "", "", (*string)(nil), ts))

	list, err := conn.Entries().ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Folder)
	assert.Equal(t, "work", *list[0].Folder)
	assert.Nil(t, list[1].Folder)
}
