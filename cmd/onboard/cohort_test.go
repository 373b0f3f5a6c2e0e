package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const cohortJSON = `{
  "process": {
    "client_name": "Acme",
    "position_title": "Contador",
    "service_type": "PC",
    "start_date": "2026-03-02",
    "deadline": "2026-04-30"
  },
  "candidates": [
    {
      "profile": {
        "full_name": "Ana María Soto Pérez",
        "email": "ana@example.com",
        "phone": "987654321",
        "birth_date": "1990-06-15",
        "education": [{"name": "Magíster", "kind": "postgrado", "institution": "Universidad de Chile", "acquired_on": "2018-12-01"}],
        "profession": {"name": "Ingeniera Comercial"}
      },
      "rating": 4,
      "cv": "cvs/ana.pdf"
    },
    {"candidate_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21", "portal": "LinkedIn"}
  ]
}`

func TestReadCohortAndEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cvs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cvs", "ana.pdf"), []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"), 0o644))

	c, err := readCohort(strings.NewReader(cohortJSON))
	require.NoError(t, err)
	require.NotNil(t, c.Process)

	d, err := c.Process.draft()
	require.NoError(t, err)
	require.Equal(t, "2026-03-02", d.StartDate.Format("2006-01-02"))
	require.NotNil(t, d.Deadline)

	entries, closeAll, err := c.entries(dir)
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, entries, 2)
	first := entries[0]
	require.NotNil(t, first.Profile)
	require.Equal(t, "Ana María Soto Pérez", first.Profile.FullName)
	require.Equal(t, 1990, first.Profile.BirthDate.Year())
	require.Len(t, first.Profile.Education, 1)
	require.Equal(t, "Universidad de Chile", first.Profile.Education[0].Institution)
	require.NotNil(t, first.Profile.Profession)
	require.Equal(t, 4, *first.Application.Rating)
	require.NotNil(t, first.CV)
	require.Equal(t, "ana.pdf", first.CV.FileName)
	require.Equal(t, "application/pdf", first.CV.ContentType)
	require.Positive(t, first.CV.Size)

	second := entries[1]
	require.Nil(t, second.Profile)
	require.NotNil(t, second.CandidateID)
	require.Equal(t, "LinkedIn", second.Application.Portal)
	require.Nil(t, second.CV)
}

func TestReadCohortRejectsAmbiguousTarget(t *testing.T) {
	_, err := readCohort(strings.NewReader(`{"candidates": []}`))
	require.Error(t, err)

	_, err = readCohort(strings.NewReader(`{"process_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21", "process": {}, "candidates": []}`))
	require.Error(t, err)

	_, err = readCohort(strings.NewReader(`{"process_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21", "extra": 1}`))
	require.Error(t, err)
}

func TestEntriesReportsBadDatesAndMissingCVs(t *testing.T) {
	c, err := readCohort(strings.NewReader(`{"process_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21",
		"candidates": [{"profile": {"full_name": "Ana Soto", "birth_date": "15/06/1990"}}]}`))
	require.NoError(t, err)
	_, _, err = c.entries(t.TempDir())
	require.ErrorContains(t, err, "candidate 1: birth_date")

	c, err = readCohort(strings.NewReader(`{"process_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21",
		"candidates": [{"candidate_id": "6f1c2a3e-8d4b-4f6a-9c2d-1e0b7a5c3d21", "cv": "missing.pdf"}]}`))
	require.NoError(t, err)
	_, _, err = c.entries(t.TempDir())
	require.ErrorContains(t, err, "candidate 1")
}
