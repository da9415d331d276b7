package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"strings"
	"time"

	xerrors "AgentKit-EVM/internal/errors"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore 使用 MySQL 记录意图流水。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 建立连接并初始化表结构。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS intent_records (
        id VARCHAR(64) PRIMARY KEY,
        description TEXT NOT NULL,
        chain_id BIGINT UNSIGNED NOT NULL,
        ops MEDIUMTEXT NOT NULL,
        status VARCHAR(32) NOT NULL,
        tx_hash TEXT,
        signatures TEXT,
        last_error TEXT,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        INDEX idx_intent_status (status),
        INDEX idx_intent_updated (updated_at)
)`

	if _, err := s.db.Exec(schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 intent_records 表失败")
	}
	return nil
}

// SaveRequested 写入一条 requested 状态的流水。
func (s *MySQLStore) SaveRequested(ctx context.Context, record *Record) error {
	if record == nil || strings.TrimSpace(record.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "流水缺少 ID")
	}

	now := time.Now().Unix()
	createdAt := record.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}

	const stmt = `INSERT INTO intent_records
        (id, description, chain_id, ops, status, tx_hash, signatures, last_error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, '', '', '', ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.Description,
		record.ChainID,
		string(record.Ops),
		StatusRequested,
		createdAt,
		now,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入意图流水失败")
	}
	return nil
}

// MarkCompleted 把流水置为 completed。
func (s *MySQLStore) MarkCompleted(ctx context.Context, id, hash string, signatures []string) error {
	encoded, err := json.Marshal(signatures)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码签名列表失败")
	}

	const stmt = `UPDATE intent_records
        SET status = ?, tx_hash = ?, signatures = ?, last_error = '', updated_at = ?
        WHERE id = ?`

	return s.update(ctx, stmt, id, StatusCompleted, hash, string(encoded), time.Now().Unix(), id)
}

// MarkFailed 把流水置为 failed。
func (s *MySQLStore) MarkFailed(ctx context.Context, id, reason string) error {
	const stmt = `UPDATE intent_records
        SET status = ?, last_error = ?, updated_at = ?
        WHERE id = ?`

	return s.update(ctx, stmt, id, StatusFailed, reason, time.Now().Unix(), id)
}

func (s *MySQLStore) update(ctx context.Context, stmt, id string, args ...any) error {
	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新意图流水失败")
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return xerrors.Newf(xerrors.CodeStorageFailure, "流水 %s 不存在", id)
	}
	return nil
}

// Get 按 ID 查询流水。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Record, error) {
	const stmt = `SELECT id, description, chain_id, ops, status, tx_hash, signatures, last_error, created_at, updated_at
        FROM intent_records WHERE id = ?`

	record, err := scanRecord(s.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.Newf(xerrors.CodeStorageFailure, "流水 %s 不存在", id)
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询意图流水失败")
	}
	return record, nil
}

// ListLatest 按更新时间倒序返回最近的流水。
func (s *MySQLStore) ListLatest(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const stmt = `SELECT id, description, chain_id, ops, status, tx_hash, signatures, last_error, created_at, updated_at
        FROM intent_records ORDER BY updated_at DESC, id ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询意图流水失败")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析意图流水失败")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历意图流水失败")
	}
	return records, nil
}

// Close 关闭数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record     Record
		ops        string
		hash       sql.NullString
		signatures sql.NullString
		lastError  sql.NullString
	)
	err := row.Scan(
		&record.ID,
		&record.Description,
		&record.ChainID,
		&ops,
		&record.Status,
		&hash,
		&signatures,
		&lastError,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Ops = json.RawMessage(ops)
	record.Hash = hash.String
	record.LastError = lastError.String
	if signatures.String != "" {
		if err := json.Unmarshal([]byte(signatures.String), &record.Signatures); err != nil {
			return nil, err
		}
	}
	return &record, nil
}

var _ Store = (*MySQLStore)(nil)
