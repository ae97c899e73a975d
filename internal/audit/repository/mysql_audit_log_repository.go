package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// MySQLAuditLogRepository implements SecurityAuditLog persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQLAuditLogRepository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

const mysqlAuditLogColumns = `id, event_type, severity, user_id, ip_address, user_agent,
	event_data, success, error_message, checksum, created_at`

// Create inserts a new audit log entry.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, log *auditDomain.SecurityAuditLog) error {
	querier := database.GetTx(ctx, m.db)

	id, err := log.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}

	var userID []byte
	if log.UserID != nil {
		userID, err = log.UserID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal user id")
		}
	}

	var eventDataJSON []byte
	if log.EventData != nil {
		eventDataJSON, err = json.Marshal(log.EventData)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log event data")
		}
	}

	query := `INSERT INTO security_audit_logs (` + mysqlAuditLogColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(log.EventType),
		string(log.Severity),
		userID,
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
func (m *MySQLAuditLogRepository) Get(ctx context.Context, id uuid.UUID) (*auditDomain.SecurityAuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log id")
	}

	query := `SELECT ` + mysqlAuditLogColumns + ` FROM security_audit_logs WHERE id = ?`

	log, err := scanMySQLAuditLog(querier.QueryRowContext(ctx, query, binID))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, auditDomain.ErrLogNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get audit log")
	}

	return log, nil
}

// List retrieves audit log entries matching the filter, newest first.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	filter auditDomain.LogFilter,
) ([]*auditDomain.SecurityAuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlAuditLogColumns + ` FROM security_audit_logs WHERE 1=1`
	args := make([]any, 0, 7)

	if filter.UserID != nil {
		userID, err := filter.UserID.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal user id")
		}
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	if filter.EventType != nil {
		query += ` AND event_type = ?`
		args = append(args, string(*filter.EventType))
	}
	if filter.Severity != nil {
		query += ` AND severity = ?`
		args = append(args, string(*filter.Severity))
	}
	if filter.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.To)
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	logs := make([]*auditDomain.SecurityAuditLog, 0)
	for rows.Next() {
		log, err := scanMySQLAuditLog(rows)
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

// CountEventsSince counts a user's events of one type at or after the given time.
func (m *MySQLAuditLogRepository) CountEventsSince(
	ctx context.Context,
	userID uuid.UUID,
	eventType auditDomain.EventType,
	since time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := userID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT COUNT(*) FROM security_audit_logs
			  WHERE user_id = ? AND event_type = ? AND created_at >= ?`

	var count int64
	err = querier.QueryRowContext(ctx, query, binID, string(eventType), since).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}

	return count, nil
}

// CountEvents counts all events of one type at or after the given time.
func (m *MySQLAuditLogRepository) CountEvents(
	ctx context.Context,
	eventType auditDomain.EventType,
	since time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM security_audit_logs WHERE event_type = ? AND created_at >= ?`

	var count int64
	err := querier.QueryRowContext(ctx, query, string(eventType), since).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}

	return count, nil
}

// Distribution returns per-event-type counts within the time range.
func (m *MySQLAuditLogRepository) Distribution(
	ctx context.Context,
	from, to time.Time,
) ([]auditDomain.EventTypeCount, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT event_type, COUNT(*) FROM security_audit_logs
			  WHERE created_at >= ? AND created_at <= ?
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
func (m *MySQLAuditLogRepository) TopUsers(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]auditDomain.UserEventCount, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT user_id, COUNT(*) FROM security_audit_logs
			  WHERE created_at >= ? AND created_at <= ? AND user_id IS NOT NULL
			  GROUP BY user_id
			  ORDER BY COUNT(*) DESC
			  LIMIT ?`

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
		var userID []byte
		if err := rows.Scan(&userID, &row.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan top users")
		}
		if err := row.UserID.UnmarshalBinary(userID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		topUsers = append(topUsers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate top users")
	}

	return topUsers, nil
}

// Timeline buckets event counts by hour, day, or week within the time range.
func (m *MySQLAuditLogRepository) Timeline(
	ctx context.Context,
	from, to time.Time,
	bucket string,
) ([]auditDomain.TimelineBucket, error) {
	querier := database.GetTx(ctx, m.db)

	var bucketExpr string
	switch bucket {
	case "hour":
		bucketExpr = `DATE_FORMAT(created_at, '%Y-%m-%d %H:00:00')`
	case "day":
		bucketExpr = `DATE_FORMAT(created_at, '%Y-%m-%d 00:00:00')`
	case "week":
		bucketExpr = `DATE_FORMAT(DATE_SUB(created_at, INTERVAL WEEKDAY(created_at) DAY), '%Y-%m-%d 00:00:00')`
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported timeline bucket "+bucket)
	}

	query := `SELECT ` + bucketExpr + ` AS bucket, COUNT(*)
			  FROM security_audit_logs
			  WHERE created_at >= ? AND created_at <= ?
			  GROUP BY bucket
			  ORDER BY bucket`

	rows, err := querier.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query timeline")
	}
	defer func() {
		_ = rows.Close()
	}()

	timeline := make([]auditDomain.TimelineBucket, 0)
	for rows.Next() {
		var row auditDomain.TimelineBucket
		var start string
		if err := rows.Scan(&start, &row.Events); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan timeline bucket")
		}
		row.Start, err = time.ParseInLocation("2006-01-02 15:04:05", start, time.UTC)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse timeline bucket")
		}
		timeline = append(timeline, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate timeline")
	}

	return timeline, nil
}

// HourHistogram returns the user's per-hour event counts since the given time.
func (m *MySQLAuditLogRepository) HourHistogram(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([24]int64, error) {
	querier := database.GetTx(ctx, m.db)

	var histogram [24]int64

	binID, err := userID.MarshalBinary()
	if err != nil {
		return histogram, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT HOUR(created_at) AS hour, COUNT(*)
			  FROM security_audit_logs
			  WHERE user_id = ? AND created_at >= ?
			  GROUP BY hour`

	rows, err := querier.QueryContext(ctx, query, binID, since)
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

// Delete removes one audit log entry.
func (m *MySQLAuditLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM security_audit_logs WHERE id = ?`, binID)
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

// DeleteExpired removes entries past their retention period.
func (m *MySQLAuditLogRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM security_audit_logs
			  WHERE (severity = ? AND created_at < ?)
			     OR (severity != ? AND created_at < ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(auditDomain.SeverityCritical),
		now.Add(-auditDomain.CriticalRetention),
		string(auditDomain.SeverityCritical),
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

func scanMySQLAuditLog(scanner rowScanner) (*auditDomain.SecurityAuditLog, error) {
	var log auditDomain.SecurityAuditLog
	var id, userID, eventDataJSON []byte
	var eventType, severity string
	var ipAddress, userAgent, errorMessage, checksum sql.NullString

	err := scanner.Scan(
		&id,
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

	if err := log.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
	}
	if len(userID) > 0 {
		var parsed uuid.UUID
		if err := parsed.UnmarshalBinary(userID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		log.UserID = &parsed
	}

	log.EventType = auditDomain.EventType(eventType)
	log.Severity = auditDomain.Severity(severity)
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
