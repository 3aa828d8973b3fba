package downloader

import (
	"context"
	"sync"

	"ripit/internal/extractor"
	"ripit/pkg/models"
)

// MockExtractor is a stub extractor for testing
type MockExtractor struct {
	mu          sync.Mutex
	ExtractFunc func(ctx context.Context, req extractor.ExtractRequest) (models.ExtractionInfo, error)
	Calls       []extractor.ExtractRequest
}

func (m *MockExtractor) Extract(ctx context.Context, req extractor.ExtractRequest) (models.ExtractionInfo, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, req)
	}
	return models.ExtractionInfo{}, nil
}

func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
