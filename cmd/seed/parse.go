package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/pkg/validation"
)

// parseSeed reads name,kcal_per_100g rows. A first row whose kcal column is not a number is
// treated as the header.
func parseSeed(r io.Reader) ([]entity.CalorieEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var out []entity.CalorieEntry
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		kcal, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: kcal %q: %w", line, rec[1], err)
		}
		c := entity.CalorieEntry{Name: entity.NormalizeDishName(rec[0]), KcalPer100g: kcal, Source: entity.SourceSeed}
		if err := validation.Struct(&c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
}
