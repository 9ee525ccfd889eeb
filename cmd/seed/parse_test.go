package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

func TestParseSeed(t *testing.T) {
	entries, err := parseSeed(strings.NewReader("name,kcal_per_100g\napple_pie, 237\nFRIED rice,174.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []entity.CalorieEntry{
		{Name: "Apple pie", KcalPer100g: 237, Source: entity.SourceSeed},
		{Name: "Fried rice", KcalPer100g: 174.5, Source: entity.SourceSeed},
	}, entries)
}

func TestParseSeedRejectsBadRows(t *testing.T) {
	_, err := parseSeed(strings.NewReader("pizza,abc\nsushi,xyz\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = parseSeed(strings.NewReader("pizza,0\n"))
	assert.Error(t, err)

	_, err = parseSeed(strings.NewReader("pizza,1,2\n"))
	assert.Error(t, err)
}

func TestBundledSeedFile(t *testing.T) {
	f, err := os.Open("../../data/calories_seed.csv")
	require.NoError(t, err)
	defer f.Close()

	entries, err := parseSeed(f)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}
