package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-cli/internal/db"
	"github.com/sells-group/edinet-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	raw     *pgxpool.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, raw: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.raw == nil {
		return eris.New("postgres: migrate requires a live pool")
	}
	sqlDB := stdlib.OpenDBFromPool(s.raw)
	defer func() { _ = sqlDB.Close() }()
	return eris.Wrap(runMigrations(ctx, sqlDB, "postgres", "migrations/postgres"), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Companies

func (s *PostgresStore) InsertCompany(ctx context.Context, c model.Company) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company (edinet_code, code, name, industry, removed, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.EdinetCode, nullString(c.Code), c.Name, nullString(c.Industry), c.Removed, now, now,
	)
	if err != nil {
		return eris.Wrapf(classifyPostgres(err), "postgres: insert company %s", c.EdinetCode)
	}
	return nil
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, c model.Company) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company (edinet_code, code, name, industry, removed, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (edinet_code) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, industry = EXCLUDED.industry, updated_at = EXCLUDED.updated_at`,
		c.EdinetCode, nullString(c.Code), c.Name, nullString(c.Industry), c.Removed, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert company %s", c.EdinetCode)
}

func (s *PostgresStore) GetCompany(ctx context.Context, edinetCode string) (*model.Company, error) {
	var c model.Company
	var code, industry *string
	err := s.pool.QueryRow(ctx,
		`SELECT edinet_code, code, name, industry, removed, created_at, updated_at FROM company WHERE edinet_code = $1`,
		edinetCode,
	).Scan(&c.EdinetCode, &code, &c.Name, &industry, &c.Removed, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", edinetCode)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", edinetCode)
	}
	c.Code = derefString(code)
	c.Industry = derefString(industry)
	return &c, nil
}

// Registry metadata

func (s *PostgresStore) SavePeriodSources(ctx context.Context, sources []model.PeriodSource) (int64, error) {
	rows := make([][]any, 0, len(sources))
	for _, p := range sources {
		rows = append(rows, periodSourceValues(p))
	}
	n, err := db.BulkInsertIgnore(ctx, s.pool, db.InsertConfig{
		Table:        "edinet_document",
		Columns:      periodSourceColumnList,
		ConflictKeys: []string{"doc_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: save period sources")
}

func (s *PostgresStore) GetPeriodSource(ctx context.Context, documentID string) (*model.PeriodSource, error) {
	p, err := scanPeriodSource(s.pool.QueryRow(ctx,
		`SELECT `+periodSourceColumns+` FROM edinet_document WHERE doc_id = $1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "period source %s", documentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get period source %s", documentID)
	}
	return p, nil
}

// Documents

func (s *PostgresStore) InsertDocument(ctx context.Context, d model.Document) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO document (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		d.DocumentID, string(d.DocumentTypeCode), nullString(string(d.QuarterType)), nullString(d.EdinetCode),
		nullString(d.ParentDocumentID), d.SubmitDate, d.DocumentPeriod,
		string(d.Downloaded), string(d.Decoded),
		string(d.ScrapedBS), nullString(d.BSDocumentPath),
		string(d.ScrapedPL), nullString(d.PLDocumentPath),
		string(d.ScrapedNumberOfShares), nullString(d.NSDocumentPath),
		d.Removed, now, now,
	)
	if err != nil {
		return eris.Wrapf(classifyPostgres(err), "postgres: insert document %s", d.DocumentID)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	d, err := scanDocumentPg(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM document WHERE document_id = $1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", documentID)
	}
	return d, nil
}

func (s *PostgresStore) ListDocumentIDsBySubmitDate(ctx context.Context, submitDate time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT document_id FROM document WHERE submit_date = $1 ORDER BY document_id`, submitDate)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list document ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate document ids")
}

func (s *PostgresStore) ListDocumentsBySubmitDate(ctx context.Context, submitDate time.Time) ([]model.Document, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM document WHERE submit_date = $1 ORDER BY document_id`, submitDate)
}

func (s *PostgresStore) ListDocumentsByEdinetCode(ctx context.Context, edinetCode string) ([]model.Document, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM document WHERE edinet_code = $1 ORDER BY submit_date, document_id`, edinetCode)
}

func (s *PostgresStore) listDocuments(ctx context.Context, query string, arg any) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocumentPg(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: iterate documents")
}

func (s *PostgresStore) SetStageStatus(ctx context.Context, documentID string, stage model.Stage, status model.Status, path string) error {
	col, ok := stageColumns[stage]
	if !ok {
		return eris.Errorf("postgres: unknown stage %q", stage)
	}

	query := fmt.Sprintf(`UPDATE document SET %s = $1, updated_at = $2 WHERE document_id = $3`, col.status)
	args := []any{string(status), time.Now().UTC(), documentID}
	if col.path != "" && path != "" {
		query = fmt.Sprintf(`UPDATE document SET %s = $1, %s = $2, updated_at = $3 WHERE document_id = $4`, col.status, col.path)
		args = []any{string(status), path, time.Now().UTC(), documentID}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s status %s", stage, documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func (s *PostgresStore) SetStageStatusIf(ctx context.Context, documentID string, stage model.Stage, expect, status model.Status) (bool, error) {
	col, ok := stageColumns[stage]
	if !ok {
		return false, eris.Errorf("postgres: unknown stage %q", stage)
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE document SET %s = $1, updated_at = $2 WHERE document_id = $3 AND %s = $4`, col.status, col.status),
		string(status), time.Now().UTC(), documentID, string(expect),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set %s status %s", stage, documentID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SetAllDone(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE document SET downloaded = $1, decoded = $1, scraped_bs = $1, scraped_pl = $1, scraped_number_of_shares = $1, updated_at = $2 WHERE document_id = $3`,
		string(model.StatusDone), time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set all done %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func (s *PostgresStore) SetDocumentPeriod(ctx context.Context, documentID string, period time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE document SET document_period = $1, updated_at = $2 WHERE document_id = $3`,
		period, time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set period %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func (s *PostgresStore) SetRemoved(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE document SET removed = true, updated_at = $1 WHERE document_id = $2`,
		time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set removed %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

// Extracted values

func (s *PostgresStore) InsertFinancialValue(ctx context.Context, v model.FinancialValue) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO financial_statement (`+financialValueColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.EdinetCode, nullString(v.CompanyCode), v.Stage.StatementID(), v.SubjectID, v.PeriodStart,
		v.PeriodEnd, v.Value, string(v.DocumentTypeCode), nullString(string(v.QuarterType)),
		v.SubmitDate, v.DocumentID, string(v.CreatedType), createdAt,
	)
	if err != nil {
		return eris.Wrapf(classifyPostgres(err), "postgres: insert financial value %s/%s", v.DocumentID, v.SubjectID)
	}
	return nil
}

func (s *PostgresStore) ListFinancialValues(ctx context.Context, documentID string) ([]model.FinancialValue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+financialValueColumns+` FROM financial_statement WHERE document_id = $1 ORDER BY financial_statement_id, subject_id`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list financial values")
	}
	defer rows.Close()

	var out []model.FinancialValue
	for rows.Next() {
		var v model.FinancialValue
		var companyCode, quarter *string
		var statementID, typeCode, createdType string
		if err := rows.Scan(&v.EdinetCode, &companyCode, &statementID, &v.SubjectID, &v.PeriodStart,
			&v.PeriodEnd, &v.Value, &typeCode, &quarter, &v.SubmitDate, &v.DocumentID, &createdType, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan financial value")
		}
		v.CompanyCode = derefString(companyCode)
		v.Stage = stageForStatement(statementID)
		v.DocumentTypeCode = model.ParseDocumentTypeCode(typeCode)
		v.QuarterType = model.ParseQuarterType(derefString(quarter))
		v.CreatedType = model.CreatedType(createdType)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate financial values")
}

// Valuation

func (s *PostgresStore) IsAnalyzed(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analysis_result WHERE document_id = $1)`, documentID,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: is analyzed %s", documentID)
}

// Monitoring

func (s *PostgresStore) CountStatuses(ctx context.Context, since time.Time) (*StatusCounts, error) {
	var c StatusCounts
	err := s.pool.QueryRow(ctx, `SELECT
		count(*),
		count(*) FILTER (WHERE removed),
		count(*) FILTER (WHERE NOT removed AND '0' IN (downloaded, decoded, scraped_bs, scraped_pl, scraped_number_of_shares)),
		count(*) FILTER (WHERE NOT removed AND '9' IN (downloaded, decoded, scraped_bs, scraped_pl, scraped_number_of_shares)),
		count(*) FILTER (WHERE scraped_bs = '1' AND scraped_pl = '1' AND scraped_number_of_shares = '1')
		FROM document WHERE submit_date >= $1`, since,
	).Scan(&c.Total, &c.Removed, &c.NotYet, &c.Errored, &c.FullyScraped)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count statuses")
	}
	return &c, nil
}

func scanDocumentPg(row scannable) (*model.Document, error) {
	var d model.Document
	var typeCode string
	var quarter, edinetCode, parent, bsPath, plPath, nsPath *string
	var downloaded, decoded, bs, pl, ns string
	err := row.Scan(&d.DocumentID, &typeCode, &quarter, &edinetCode, &parent,
		&d.SubmitDate, &d.DocumentPeriod, &downloaded, &decoded, &bs, &bsPath, &pl,
		&plPath, &ns, &nsPath, &d.Removed, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.DocumentTypeCode = model.ParseDocumentTypeCode(typeCode)
	d.QuarterType = model.ParseQuarterType(derefString(quarter))
	d.EdinetCode = derefString(edinetCode)
	d.ParentDocumentID = derefString(parent)
	d.Downloaded = model.Status(downloaded)
	d.Decoded = model.Status(decoded)
	d.ScrapedBS = model.Status(bs)
	d.BSDocumentPath = derefString(bsPath)
	d.ScrapedPL = model.Status(pl)
	d.PLDocumentPath = derefString(plPath)
	d.ScrapedNumberOfShares = model.Status(ns)
	d.NSDocumentPath = derefString(nsPath)
	if d.DocumentPeriod != nil {
		p := d.DocumentPeriod.UTC()
		d.DocumentPeriod = &p
	}
	return &d, nil
}

func stageForStatement(id string) model.Stage {
	for _, s := range model.ScrapeStages {
		if s.StatementID() == id {
			return s
		}
	}
	return ""
}
