package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docanalyser/internal/domain"
	"docanalyser/internal/port"
)

const resultColumns = "id, source_path, file_name, mime_type, size_bytes, sha256, category, confidence, fields, raw_text, model, created_at"

// resultRow scans fields as plain bytes so both text and binary jsonb
// representations decode.
type resultRow struct {
	ID         uuid.UUID          `db:"id"`
	SourcePath string             `db:"source_path"`
	FileName   string             `db:"file_name"`
	MIMEType   string             `db:"mime_type"`
	SizeBytes  int64              `db:"size_bytes"`
	SHA256     string             `db:"sha256"`
	Category   domain.DocCategory `db:"category"`
	Confidence float64            `db:"confidence"`
	Fields     []byte             `db:"fields"`
	RawText    *string            `db:"raw_text"`
	Model      string             `db:"model"`
	CreatedAt  time.Time          `db:"created_at"`
}

func (row *resultRow) record() domain.ResultRecord {
	return domain.ResultRecord{
		ID:         row.ID,
		SourcePath: row.SourcePath,
		FileName:   row.FileName,
		MIMEType:   row.MIMEType,
		SizeBytes:  row.SizeBytes,
		SHA256:     row.SHA256,
		Category:   domain.ParseDocCategory(string(row.Category)),
		Confidence: row.Confidence,
		Fields:     json.RawMessage(row.Fields),
		RawText:    row.RawText,
		Model:      row.Model,
		CreatedAt:  row.CreatedAt,
	}
}

type analysisResultRepo struct {
	db *sqlx.DB
}

// NewAnalysisResultRepo creates a new PostgreSQL-backed AnalysisResultRepository.
func NewAnalysisResultRepo(db *sqlx.DB) port.AnalysisResultRepository {
	return &analysisResultRepo{db: db}
}

func (r *analysisResultRepo) Save(ctx context.Context, rec *domain.ResultRecord) error {
	fields := rec.Fields
	if len(fields) == 0 {
		fields = []byte("{}")
	}

	query := `INSERT INTO analysis_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SourcePath, rec.FileName, rec.MIMEType, rec.SizeBytes, rec.SHA256,
		rec.Category, rec.Confidence, []byte(fields), rec.RawText, rec.Model, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("analysisResultRepo.Save: %w", err)
	}
	return nil
}

func (r *analysisResultRepo) GetByID(ctx context.Context, id string) (*domain.ResultRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var row resultRow
	err = r.db.GetContext(ctx, &row,
		"SELECT "+resultColumns+" FROM analysis_results WHERE id = $1", parsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("analysisResultRepo.GetByID: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

func (r *analysisResultRepo) ListBySHA256(ctx context.Context, sha256 string) ([]domain.ResultRecord, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+resultColumns+" FROM analysis_results WHERE sha256 = $1 ORDER BY created_at DESC", sha256)
	if err != nil {
		return nil, fmt.Errorf("analysisResultRepo.ListBySHA256: %w", err)
	}
	recs := make([]domain.ResultRecord, len(rows))
	for i := range rows {
		recs[i] = rows[i].record()
	}
	return recs, nil
}
