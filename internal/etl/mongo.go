package etl

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/crashclean/pkg/logger"
	"github.com/BartekS5/crashclean/pkg/models"
)

const (
	ArchiveDatabase    = "crashclean"
	RunsCollection     = "runs"
	FindingsCollection = "findings"
)

// RunSummary is the archived record of one command invocation.
type RunSummary struct {
	RunID         string                  `bson:"_id"`
	Command       string                  `bson:"command"`
	StartedAt     time.Time               `bson:"started_at"`
	Source        string                  `bson:"source,omitempty"`
	Destination   string                  `bson:"destination,omitempty"`
	RowsProcessed int                     `bson:"rows_processed"`
	AnomalyCount  int                     `bson:"anomaly_count"`
	FindingCounts map[string]int          `bson:"finding_counts,omitempty"`
	Passed        *bool                   `bson:"passed,omitempty"`
	Metadata      []models.ColumnMetadata `bson:"metadata,omitempty"`
}

// ArchivedFinding is one anomaly or validation finding of a run.
type ArchivedFinding struct {
	RunID    string  `bson:"run_id"`
	Seq      int     `bson:"seq"`
	Kind     string  `bson:"kind"`
	Category string  `bson:"category,omitempty"`
	Severity string  `bson:"severity,omitempty"`
	Field    string  `bson:"field,omitempty"`
	RowIDs   []int64 `bson:"row_ids,omitempty"`
	Message  string  `bson:"message"`
}

// AnomalyFindings converts cleaning anomalies for archiving. Sequence
// numbers start at first.
func AnomalyFindings(runID string, anomalies []Anomaly, first int) []ArchivedFinding {
	out := make([]ArchivedFinding, len(anomalies))
	for i, a := range anomalies {
		out[i] = ArchivedFinding{
			RunID:   runID,
			Seq:     first + i,
			Kind:    "anomaly",
			Field:   a.Field,
			RowIDs:  []int64{a.RowID},
			Message: a.String(),
		}
	}
	return out
}

// RunArchiver keeps a copy of run summaries and findings in MongoDB.
type RunArchiver struct {
	Client   *mongo.Client
	Database string
}

func NewRunArchiver(client *mongo.Client) *RunArchiver {
	return &RunArchiver{Client: client, Database: ArchiveDatabase}
}

// Archive upserts the run summary and its findings. Re-archiving a run id
// replaces the previous copy.
func (a *RunArchiver) Archive(ctx context.Context, run RunSummary, findings []ArchivedFinding) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db := a.Client.Database(a.Database)
	_, err := db.Collection(RunsCollection).ReplaceOne(ctx,
		bson.M{"_id": run.RunID}, run, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}

	if len(findings) == 0 {
		return nil
	}
	var writes []mongo.WriteModel
	for _, f := range findings {
		filter := bson.M{"run_id": f.RunID, "seq": f.Seq}
		writes = append(writes, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(f).SetUpsert(true))
	}
	res, err := db.Collection(FindingsCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return err
	}
	logger.Infof("Mongo BulkWrite: Match %d, Mod %d, Upsert %d", res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}
