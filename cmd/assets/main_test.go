package main

import (
	"bytes"
	"testing"
	"time"
	"youcube/domain"

	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	renderTable(&out, []domain.AssetRecord{
		{ID: "abc", Title: "Song", SourceURL: "https://youtu.be/x", CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "def", Title: "Clip", Resolutions: []domain.Resolution{{Width: 328, Height: 243}}},
	})

	req.Contains(out.String(), "abc")
	req.Contains(out.String(), "audio only")
	req.Contains(out.String(), "328x243")
	req.Contains(out.String(), "2 asset(s)")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefghij", 5))
}
