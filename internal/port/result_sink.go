package port

import (
	"context"

	"docanalyser/internal/domain"
)

// ResultSink persists analysed documents.
type ResultSink interface {
	Save(ctx context.Context, rec *domain.ResultRecord) error
}

// AnalysisResultRepository is a ResultSink backed by a queryable store.
type AnalysisResultRepository interface {
	ResultSink
	GetByID(ctx context.Context, id string) (*domain.ResultRecord, error)
	ListBySHA256(ctx context.Context, sha256 string) ([]domain.ResultRecord, error)
}
