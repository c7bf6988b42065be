package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ats-job-pipeline/internal/models"
)

// FileSource reads the company list from a JSON array on disk.
type FileSource struct {
	Path string
}

func (f *FileSource) Companies(_ context.Context) ([]models.Company, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", f.Path, err)
	}
	var companies []models.Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", f.Path, err)
	}
	if err := validate(companies); err != nil {
		return nil, fmt.Errorf("registry %s: %w", f.Path, err)
	}
	return companies, nil
}
