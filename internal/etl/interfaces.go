package etl

import (
	"context"

	"github.com/BartekS5/crashclean/pkg/models"
)

// Extractor reads every raw record of the source, in source order.
type Extractor interface {
	Extract(ctx context.Context) ([]models.RawRecord, error)
}

// Loader writes normalized records to a freshly created destination.
type Loader interface {
	// Prepare checks the destination can be written without touching it.
	Prepare(ctx context.Context) error
	Load(ctx context.Context, records []models.Record) error
	// Metadata summarizes what Load wrote.
	Metadata(ctx context.Context) ([]models.ColumnMetadata, error)
}
