// Package catalog provides the list of known dish names fed to the calorie backfill.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// Source yields normalized, de-duplicated dish names in catalog order.
type Source interface {
	Names(ctx context.Context) ([]string, error)
}

// Parse reads one class per line. Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := entity.NormalizeDishName(line)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, sc.Err()
}

type FileSource struct {
	Path string
}

func (s FileSource) Names(_ context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

type GCSSource struct {
	Client *storage.Client
	Bucket string
	Object string
}

func (s GCSSource) Names(ctx context.Context) ([]string, error) {
	b, err := helpers.ReadObject(ctx, s.Client, s.Bucket, s.Object)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(b))
}

// Select prefers the GCS object when a client and object name are configured and falls back
// to the bundled file.
func Select(client *storage.Client, bucket, object, path string) Source {
	if client != nil && object != "" {
		return GCSSource{Client: client, Bucket: bucket, Object: object}
	}
	return FileSource{Path: path}
}
