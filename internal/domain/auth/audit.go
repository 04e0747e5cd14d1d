package auth

import "time"

// AuditEvent names a recorded authentication event.
type AuditEvent string

const (
	AuditLoginSuccess AuditEvent = "login_success"
	AuditLoginFailure AuditEvent = "login_failure"
	AuditRefresh      AuditEvent = "refresh"
	AuditLogout       AuditEvent = "logout"
)

// AuditEntry is one row of the login audit trail. Recording is best-effort
// and never changes an authentication outcome.
type AuditEntry struct {
	ID         string     `json:"id"         db:"id"`
	Audience   Audience   `json:"audience"   db:"audience"`
	Identifier string     `json:"identifier" db:"identifier"`
	Event      AuditEvent `json:"event"      db:"event"`
	ErrorCode  string     `json:"error_code" db:"error_code"`
	RemoteAddr string     `json:"remote_addr" db:"remote_addr"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
