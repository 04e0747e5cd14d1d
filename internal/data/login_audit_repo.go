package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/triviahub/th-auth-api/internal/data/pgxutil"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// LoginAuditRepo persists the login audit trail.
type LoginAuditRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

var _ ports.AuditRecorder = (*LoginAuditRepo)(nil)

// NewLoginAuditRepo creates a LoginAuditRepo backed by real time.
func NewLoginAuditRepo(db *sql.DB) *LoginAuditRepo {
	return &LoginAuditRepo{DB: db, Time: &RealTimeProvider{}}
}

// Record appends one audit entry. Missing ID and CreatedAt are filled in.
func (r *LoginAuditRepo) Record(ctx context.Context, entry domainauth.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.Time.Now()
	}
	if !entry.Audience.Valid() {
		return apperrors.Validation("audit entry has unknown audience")
	}

	const query = `
		INSERT INTO login_audit (id, audience, identifier, event, error_code, remote_addr, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		entry.ID, entry.Audience, entry.Identifier, entry.Event,
		entry.ErrorCode, entry.RemoteAddr, entry.CreatedAt.UTC())
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("insert audit entry: %w", err))
	}
	return nil
}

// Tail returns the most recent entries, newest first.
func (r *LoginAuditRepo) Tail(ctx context.Context, limit int) ([]domainauth.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []domainauth.AuditEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, audience, identifier, event, error_code, remote_addr, created_at
			FROM login_audit
			ORDER BY created_at DESC
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.AuditEntry])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("tail audit entries: %w", err))
	}
	return entries, nil
}

// CountRecentFailures counts login failures for the identifier within the
// window ending now.
func (r *LoginAuditRepo) CountRecentFailures(ctx context.Context, audience domainauth.Audience, identifier string, window time.Duration) (int, error) {
	since := r.Time.Now().Add(-window).UTC()

	var count int
	const query = `
		SELECT COUNT(*) FROM login_audit
		WHERE audience = $1 AND identifier = $2 AND event = $3 AND created_at >= $4`
	err := r.DB.QueryRowContext(ctx, query, audience, identifier, domainauth.AuditLoginFailure, since).Scan(&count)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("count recent failures: %w", err))
	}
	return count, nil
}

// Prune deletes entries older than the retention period and reports how many
// rows were removed.
func (r *LoginAuditRepo) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.Time.Now().Add(-retention).UTC()

	var removed int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, execErr := tx.ExecContext(ctx, `DELETE FROM login_audit WHERE created_at < $1`, cutoff)
			if execErr != nil {
				return execErr
			}
			removed, execErr = res.RowsAffected()
			return execErr
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("prune audit entries: %w", err))
	}
	return removed, nil
}
