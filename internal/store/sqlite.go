package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/edinet-cli/internal/model"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path with WAL mode and
// foreign keys enforced on every connection.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return eris.Wrap(runMigrations(ctx, s.db, "sqlite3", "migrations/sqlite"), "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// Companies

func (s *SQLiteStore) InsertCompany(ctx context.Context, c model.Company) error {
	ts := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company (edinet_code, code, name, industry, removed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.EdinetCode, nullString(c.Code), c.Name, nullString(c.Industry), c.Removed, ts, ts,
	)
	if err != nil {
		return eris.Wrapf(classifySQLite(err), "sqlite: insert company %s", c.EdinetCode)
	}
	return nil
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, c model.Company) error {
	ts := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company (edinet_code, code, name, industry, removed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (edinet_code) DO UPDATE SET code = excluded.code, name = excluded.name, industry = excluded.industry, updated_at = excluded.updated_at`,
		c.EdinetCode, nullString(c.Code), c.Name, nullString(c.Industry), c.Removed, ts, ts,
	)
	return eris.Wrapf(err, "sqlite: upsert company %s", c.EdinetCode)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, edinetCode string) (*model.Company, error) {
	var c model.Company
	var code, industry sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT edinet_code, code, name, industry, removed, created_at, updated_at FROM company WHERE edinet_code = ?`,
		edinetCode,
	).Scan(&c.EdinetCode, &code, &c.Name, &industry, &c.Removed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", edinetCode)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", edinetCode)
	}
	c.Code = code.String
	c.Industry = industry.String
	c.CreatedAt = parseTimestamp(createdAt)
	c.UpdatedAt = parseTimestamp(updatedAt)
	return &c, nil
}

// Registry metadata

func (s *SQLiteStore) SavePeriodSources(ctx context.Context, sources []model.PeriodSource) (int64, error) {
	if len(sources) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(periodSourceColumnList)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edinet_document (`+periodSourceColumns+`) VALUES (`+placeholders+`) ON CONFLICT (doc_id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare period source insert")
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for _, p := range sources {
		res, err := stmt.ExecContext(ctx, periodSourceValues(p)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert period source %s", p.DocumentID)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit period sources")
	}
	return inserted, nil
}

func (s *SQLiteStore) GetPeriodSource(ctx context.Context, documentID string) (*model.PeriodSource, error) {
	p, err := scanPeriodSource(s.db.QueryRowContext(ctx,
		`SELECT `+periodSourceColumns+` FROM edinet_document WHERE doc_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "period source %s", documentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get period source %s", documentID)
	}
	return p, nil
}

// Documents

func (s *SQLiteStore) InsertDocument(ctx context.Context, d model.Document) error {
	ts := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DocumentID, string(d.DocumentTypeCode), nullString(string(d.QuarterType)), nullString(d.EdinetCode),
		nullString(d.ParentDocumentID), d.SubmitDate.Format(dateLayout), formatPeriod(d.DocumentPeriod),
		string(d.Downloaded), string(d.Decoded),
		string(d.ScrapedBS), nullString(d.BSDocumentPath),
		string(d.ScrapedPL), nullString(d.PLDocumentPath),
		string(d.ScrapedNumberOfShares), nullString(d.NSDocumentPath),
		d.Removed, ts, ts,
	)
	if err != nil {
		return eris.Wrapf(classifySQLite(err), "sqlite: insert document %s", d.DocumentID)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	d, err := scanDocumentSQLite(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM document WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", documentID)
	}
	return d, nil
}

func (s *SQLiteStore) ListDocumentIDsBySubmitDate(ctx context.Context, submitDate time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id FROM document WHERE submit_date = ? ORDER BY document_id`, submitDate.Format(dateLayout))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list document ids")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate document ids")
}

func (s *SQLiteStore) ListDocumentsBySubmitDate(ctx context.Context, submitDate time.Time) ([]model.Document, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM document WHERE submit_date = ? ORDER BY document_id`, submitDate.Format(dateLayout))
}

func (s *SQLiteStore) ListDocumentsByEdinetCode(ctx context.Context, edinetCode string) ([]model.Document, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM document WHERE edinet_code = ? ORDER BY submit_date, document_id`, edinetCode)
}

func (s *SQLiteStore) listDocuments(ctx context.Context, query string, arg any) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocumentSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

func (s *SQLiteStore) SetStageStatus(ctx context.Context, documentID string, stage model.Stage, status model.Status, path string) error {
	col, ok := stageColumns[stage]
	if !ok {
		return eris.Errorf("sqlite: unknown stage %q", stage)
	}

	query := fmt.Sprintf(`UPDATE document SET %s = ?, updated_at = ? WHERE document_id = ?`, col.status)
	args := []any{string(status), timestamp(), documentID}
	if col.path != "" && path != "" {
		query = fmt.Sprintf(`UPDATE document SET %s = ?, %s = ?, updated_at = ? WHERE document_id = ?`, col.status, col.path)
		args = []any{string(status), path, timestamp(), documentID}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s status %s", stage, documentID)
	}
	return checkRowsAffected(res, "document", documentID)
}

func (s *SQLiteStore) SetStageStatusIf(ctx context.Context, documentID string, stage model.Stage, expect, status model.Status) (bool, error) {
	col, ok := stageColumns[stage]
	if !ok {
		return false, eris.Errorf("sqlite: unknown stage %q", stage)
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE document SET %s = ?, updated_at = ? WHERE document_id = ? AND %s = ?`, col.status, col.status),
		string(status), timestamp(), documentID, string(expect),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set %s status %s", stage, documentID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) SetAllDone(ctx context.Context, documentID string) error {
	done := string(model.StatusDone)
	res, err := s.db.ExecContext(ctx,
		`UPDATE document SET downloaded = ?, decoded = ?, scraped_bs = ?, scraped_pl = ?, scraped_number_of_shares = ?, updated_at = ? WHERE document_id = ?`,
		done, done, done, done, done, timestamp(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set all done %s", documentID)
	}
	return checkRowsAffected(res, "document", documentID)
}

func (s *SQLiteStore) SetDocumentPeriod(ctx context.Context, documentID string, period time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE document SET document_period = ?, updated_at = ? WHERE document_id = ?`,
		period.Format(dateLayout), timestamp(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set period %s", documentID)
	}
	return checkRowsAffected(res, "document", documentID)
}

func (s *SQLiteStore) SetRemoved(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE document SET removed = 1, updated_at = ? WHERE document_id = ?`, timestamp(), documentID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set removed %s", documentID)
	}
	return checkRowsAffected(res, "document", documentID)
}

// Extracted values

func (s *SQLiteStore) InsertFinancialValue(ctx context.Context, v model.FinancialValue) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO financial_statement (`+financialValueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.EdinetCode, nullString(v.CompanyCode), v.Stage.StatementID(), v.SubjectID, v.PeriodStart,
		v.PeriodEnd, v.Value, string(v.DocumentTypeCode), nullString(string(v.QuarterType)),
		v.SubmitDate.Format(dateLayout), v.DocumentID, string(v.CreatedType), createdAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return eris.Wrapf(classifySQLite(err), "sqlite: insert financial value %s/%s", v.DocumentID, v.SubjectID)
	}
	return nil
}

func (s *SQLiteStore) ListFinancialValues(ctx context.Context, documentID string) ([]model.FinancialValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+financialValueColumns+` FROM financial_statement WHERE document_id = ? ORDER BY financial_statement_id, subject_id`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list financial values")
	}
	defer func() { _ = rows.Close() }()

	var out []model.FinancialValue
	for rows.Next() {
		var v model.FinancialValue
		var companyCode, quarter sql.NullString
		var value sql.NullInt64
		var statementID, typeCode, submitDate, createdType, createdAt string
		if err := rows.Scan(&v.EdinetCode, &companyCode, &statementID, &v.SubjectID, &v.PeriodStart,
			&v.PeriodEnd, &value, &typeCode, &quarter, &submitDate, &v.DocumentID, &createdType, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan financial value")
		}
		v.CompanyCode = companyCode.String
		v.Stage = stageForStatement(statementID)
		if value.Valid {
			n := value.Int64
			v.Value = &n
		}
		v.DocumentTypeCode = model.ParseDocumentTypeCode(typeCode)
		v.QuarterType = model.ParseQuarterType(quarter.String)
		v.SubmitDate, _ = time.Parse(dateLayout, submitDate)
		v.CreatedType = model.CreatedType(createdType)
		v.CreatedAt = parseTimestamp(createdAt)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate financial values")
}

// Valuation

func (s *SQLiteStore) IsAnalyzed(ctx context.Context, documentID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM analysis_result WHERE document_id = ?)`, documentID,
	).Scan(&exists)
	return exists == 1, eris.Wrapf(err, "sqlite: is analyzed %s", documentID)
}

// Monitoring

func (s *SQLiteStore) CountStatuses(ctx context.Context, since time.Time) (*StatusCounts, error) {
	var c StatusCounts
	err := s.db.QueryRowContext(ctx, `SELECT
		count(*),
		coalesce(sum(CASE WHEN removed = 1 THEN 1 ELSE 0 END), 0),
		coalesce(sum(CASE WHEN removed = 0 AND '0' IN (downloaded, decoded, scraped_bs, scraped_pl, scraped_number_of_shares) THEN 1 ELSE 0 END), 0),
		coalesce(sum(CASE WHEN removed = 0 AND '9' IN (downloaded, decoded, scraped_bs, scraped_pl, scraped_number_of_shares) THEN 1 ELSE 0 END), 0),
		coalesce(sum(CASE WHEN scraped_bs = '1' AND scraped_pl = '1' AND scraped_number_of_shares = '1' THEN 1 ELSE 0 END), 0)
		FROM document WHERE submit_date >= ?`, since.Format(dateLayout),
	).Scan(&c.Total, &c.Removed, &c.NotYet, &c.Errored, &c.FullyScraped)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count statuses")
	}
	return &c, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func formatPeriod(p *time.Time) *string {
	if p == nil {
		return nil
	}
	s := p.Format(dateLayout)
	return &s
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func scanDocumentSQLite(row scannable) (*model.Document, error) {
	var d model.Document
	var typeCode, submitDate, createdAt, updatedAt string
	var quarter, edinetCode, parent, period, bsPath, plPath, nsPath sql.NullString
	var downloaded, decoded, bs, pl, ns string
	err := row.Scan(&d.DocumentID, &typeCode, &quarter, &edinetCode, &parent,
		&submitDate, &period, &downloaded, &decoded, &bs, &bsPath, &pl,
		&plPath, &ns, &nsPath, &d.Removed, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.DocumentTypeCode = model.ParseDocumentTypeCode(typeCode)
	d.QuarterType = model.ParseQuarterType(quarter.String)
	d.EdinetCode = edinetCode.String
	d.ParentDocumentID = parent.String
	if d.SubmitDate, err = time.Parse(dateLayout, submitDate); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse submit date %q", submitDate)
	}
	if period.Valid {
		p, err := time.Parse(dateLayout, period.String)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse document period %q", period.String)
		}
		d.DocumentPeriod = &p
	}
	d.Downloaded = model.Status(downloaded)
	d.Decoded = model.Status(decoded)
	d.ScrapedBS = model.Status(bs)
	d.BSDocumentPath = bsPath.String
	d.ScrapedPL = model.Status(pl)
	d.PLDocumentPath = plPath.String
	d.ScrapedNumberOfShares = model.Status(ns)
	d.NSDocumentPath = nsPath.String
	d.CreatedAt = parseTimestamp(createdAt)
	d.UpdatedAt = parseTimestamp(updatedAt)
	return &d, nil
}
