// Package store persists the most recent AnalysisResult so remediation and
// reporting can run without re-scanning.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// ErrNoResult is returned by Latest when nothing has been saved yet.
var ErrNoResult = errors.New("no stored scan result")

// Store keeps the latest scan result.
type Store interface {
	Save(ctx context.Context, r *models.AnalysisResult) error
	Latest(ctx context.Context) (*models.AnalysisResult, error)
}

// encode serialises r as zstd-compressed JSON.
func encode(r *models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(r); err != nil {
		zw.Close()
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flush zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.AnalysisResult, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress result: %w", err)
	}
	var r models.AnalysisResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	latest *models.AnalysisResult
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{} }

// Save implements Store.
func (m *Memory) Save(_ context.Context, r *models.AnalysisResult) error {
	cp := *r
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = &cp
	return nil
}

// Latest implements Store.
func (m *Memory) Latest(context.Context) (*models.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, ErrNoResult
	}
	cp := *m.latest
	return &cp, nil
}
