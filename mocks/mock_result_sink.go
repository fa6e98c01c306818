package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docanalyser/internal/domain"
)

// MockResultSink is a mock implementation of port.ResultSink.
type MockResultSink struct {
	mock.Mock
}

func (m *MockResultSink) Save(ctx context.Context, rec *domain.ResultRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockAnalysisResultRepo is a mock implementation of port.AnalysisResultRepository.
type MockAnalysisResultRepo struct {
	mock.Mock
}

func (m *MockAnalysisResultRepo) Save(ctx context.Context, rec *domain.ResultRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAnalysisResultRepo) GetByID(ctx context.Context, id string) (*domain.ResultRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultRecord), args.Error(1)
}

func (m *MockAnalysisResultRepo) ListBySHA256(ctx context.Context, sha256 string) ([]domain.ResultRecord, error) {
	args := m.Called(ctx, sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResultRecord), args.Error(1)
}
