package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docanalyser/internal/domain"
	"docanalyser/internal/service"
)

// MockAnalysisService is a mock implementation of service.AnalysisService.
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) AnalysePaths(ctx context.Context, paths []string) ([]domain.DocumentOutcome, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentOutcome), args.Error(1)
}

func (m *MockAnalysisService) AnalyseUploads(ctx context.Context, uploads []service.Upload) ([]domain.DocumentOutcome, error) {
	args := m.Called(ctx, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentOutcome), args.Error(1)
}

func (m *MockAnalysisService) KeyUsage(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockAnalysisService) Model() string {
	args := m.Called()
	return args.String(0)
}
