// Package repository provides PostgreSQL and MySQL persistence for the
// security audit log. The table is append-only: entries are never updated,
// and deletion goes through the retention-checked use case.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// PostgreSQLAuditLogRepository implements SecurityAuditLog persistence for
// PostgreSQL. Uses native UUID types with transaction support via
// database.GetTx().
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQLAuditLogRepository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

const pgAuditLogColumns = `id, event_type, severity, user_id, ip_address, user_agent,
	event_data, success, error_message, checksum, created_at`

// Create inserts a new audit log entry. Handles nil event data as NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, log *auditDomain.SecurityAuditLog) error {
	querier := database.GetTx(ctx, p.db)

	var eventDataJSON []byte
	var err error
	if log.EventData != nil {
		eventDataJSON, err = json.Marshal(log.EventData)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log event data")
		}
	}

	query := `INSERT INTO security_audit_logs (` + pgAuditLogColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		log.ID,
		string(log.EventType),
		string(log.Severity),
		log.UserID,
		nullString(log.IPAddress),
		nullString(log.UserAgent),
		eventDataJSON,
		log.Success,
		nullString(log.ErrorMessage),
		nullString(log.Checksum),
		log.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// Get retrieves one audit log entry by ID.
func (p *PostgreSQLAuditLogRepository) Get(ctx context.Context, id uuid.UUID) (*auditDomain.SecurityAuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgAuditLogColumns + ` FROM security_audit_logs WHERE id = $1`

	log, err := scanAuditLog(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, auditDomain.ErrLogNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get audit log")
	}

	return log, nil
}

// List retrieves audit log entries matching the filter, newest first.
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	filter auditDomain.LogFilter,
) ([]*auditDomain.SecurityAuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgAuditLogColumns + ` FROM security_audit_logs WHERE 1=1`
	args := make([]any, 0, 6)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if filter.EventType != nil {
		args = append(args, string(*filter.EventType))
		query += ` AND event_type = $` + strconv.Itoa(len(args))
	}
	if filter.Severity != nil {
		args = append(args, string(*filter.Severity))
		query += ` AND severity = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	logs := make([]*auditDomain.SecurityAuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return logs, nil
}

// CountEventsSince counts a user's events of one type at or after the given
// time. Backs the lockout counter and rapid-succession detection, so the
// query must stay on the (user_id, event_type, created_at) index.
func (p *PostgreSQLAuditLogRepository) CountEventsSince(
	ctx context.Context,
	userID uuid.UUID,
	eventType auditDomain.EventType,
	since time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM security_audit_logs
			  WHERE user_id = $1 AND event_type = $2 AND created_at >= $3`

	var count int64
	err := querier.QueryRowContext(ctx, query, userID, string(eventType), since).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}

	return count, nil
}

// CountEvents counts all events of one type at or after the given time.
func (p *PostgreSQLAuditLogRepository) CountEvents(
	ctx context.Context,
	eventType auditDomain.EventType,
	since time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM security_audit_logs WHERE event_type = $1 AND created_at >= $2`

	var count int64
	err := querier.QueryRowContext(ctx, query, string(eventType), since).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}

	return count, nil
}

// Distribution returns per-event-type counts within the time range.
func (p *PostgreSQLAuditLogRepository) Distribution(
	ctx context.Context,
	from, to time.Time,
) ([]auditDomain.EventTypeCount, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT event_type, COUNT(*) FROM security_audit_logs
			  WHERE created_at >= $1 AND created_at <= $2
			  GROUP BY event_type
			  ORDER BY COUNT(*) DESC`

	rows, err := querier.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query event distribution")
	}
	defer func() {
		_ = rows.Close()
	}()

	distribution := make([]auditDomain.EventTypeCount, 0)
	for rows.Next() {
		var row auditDomain.EventTypeCount
		var eventType string
		if err := rows.Scan(&eventType, &row.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event distribution")
		}
		row.EventType = auditDomain.EventType(eventType)
		distribution = append(distribution, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate event distribution")
	}

	return distribution, nil
}

// TopUsers returns the users with the most events within the time range.
func (p *PostgreSQLAuditLogRepository) TopUsers(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]auditDomain.UserEventCount, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT user_id, COUNT(*) FROM security_audit_logs
			  WHERE created_at >= $1 AND created_at <= $2 AND user_id IS NOT NULL
			  GROUP BY user_id
			  ORDER BY COUNT(*) DESC
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query top users")
	}
	defer func() {
		_ = rows.Close()
	}()

	topUsers := make([]auditDomain.UserEventCount, 0)
	for rows.Next() {
		var row auditDomain.UserEventCount
		if err := rows.Scan(&row.UserID, &row.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan top users")
		}
		topUsers = append(topUsers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate top users")
	}

	return topUsers, nil
}

// Timeline buckets event counts by hour, day, or week within the time range.
func (p *PostgreSQLAuditLogRepository) Timeline(
	ctx context.Context,
	from, to time.Time,
	bucket string,
) ([]auditDomain.TimelineBucket, error) {
	querier := database.GetTx(ctx, p.db)

	switch bucket {
	case "hour", "day", "week":
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported timeline bucket "+bucket)
	}

	query := `SELECT date_trunc($1, created_at) AS bucket, COUNT(*)
			  FROM security_audit_logs
			  WHERE created_at >= $2 AND created_at <= $3
			  GROUP BY bucket
			  ORDER BY bucket`

	rows, err := querier.QueryContext(ctx, query, bucket, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query timeline")
	}
	defer func() {
		_ = rows.Close()
	}()

	timeline := make([]auditDomain.TimelineBucket, 0)
	for rows.Next() {
		var row auditDomain.TimelineBucket
		if err := rows.Scan(&row.Start, &row.Events); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan timeline bucket")
		}
		timeline = append(timeline, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate timeline")
	}

	return timeline, nil
}

// HourHistogram returns the user's per-hour event counts since the given time.
// Feeds the learned typical-hours window of the anomaly detector.
func (p *PostgreSQLAuditLogRepository) HourHistogram(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([24]int64, error) {
	querier := database.GetTx(ctx, p.db)

	var histogram [24]int64

	query := `SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*)
			  FROM security_audit_logs
			  WHERE user_id = $1 AND created_at >= $2
			  GROUP BY hour`

	rows, err := querier.QueryContext(ctx, query, userID, since)
	if err != nil {
		return histogram, apperrors.Wrap(err, "failed to query hour histogram")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var hour int
		var count int64
		if err := rows.Scan(&hour, &count); err != nil {
			return histogram, apperrors.Wrap(err, "failed to scan hour histogram")
		}
		if hour >= 0 && hour < 24 {
			histogram[hour] = count
		}
	}
	if err := rows.Err(); err != nil {
		return histogram, apperrors.Wrap(err, "failed to iterate hour histogram")
	}

	return histogram, nil
}

// Delete removes one audit log entry. Retention checks happen in the use case.
func (p *PostgreSQLAuditLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM security_audit_logs WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete audit log")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return auditDomain.ErrLogNotFound
	}

	return nil
}

// DeleteExpired removes entries past their retention period: critical entries
// older than seven years, everything else older than two years.
func (p *PostgreSQLAuditLogRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM security_audit_logs
			  WHERE (severity = $1 AND created_at < $2)
			     OR (severity != $1 AND created_at < $3)`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(auditDomain.SeverityCritical),
		now.Add(-auditDomain.CriticalRetention),
		now.Add(-auditDomain.StandardRetention),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired audit logs")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}

	return affected, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(scanner rowScanner) (*auditDomain.SecurityAuditLog, error) {
	var log auditDomain.SecurityAuditLog
	var eventType, severity string
	var userID uuid.NullUUID
	var ipAddress, userAgent, errorMessage, checksum sql.NullString
	var eventDataJSON []byte

	err := scanner.Scan(
		&log.ID,
		&eventType,
		&severity,
		&userID,
		&ipAddress,
		&userAgent,
		&eventDataJSON,
		&log.Success,
		&errorMessage,
		&checksum,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	log.EventType = auditDomain.EventType(eventType)
	log.Severity = auditDomain.Severity(severity)
	if userID.Valid {
		log.UserID = &userID.UUID
	}
	log.IPAddress = ipAddress.String
	log.UserAgent = userAgent.String
	log.ErrorMessage = errorMessage.String
	log.Checksum = checksum.String

	if len(eventDataJSON) > 0 {
		if err := json.Unmarshal(eventDataJSON, &log.EventData); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log event data")
		}
	}

	return &log, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
