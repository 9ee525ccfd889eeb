package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// ReportStore uploads backfill reports as JSON objects under prefix.
type ReportStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func (s ReportStore) Save(ctx context.Context, report any) (string, error) {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	object := path.Join(s.Prefix, uuid.NewString()+".json")
	return helpers.UploadObject(ctx, s.Client, s.Bucket, object, "application/json", bytes.NewReader(b))
}
