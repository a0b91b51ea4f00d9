package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
)

// nbSource absorbs both spellings of notebook cell sources: a single string,
// or a list of line strings.
type nbSource string

func (s *nbSource) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = nbSource(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = nbSource(strings.Join(many, ""))
	return nil
}

type nbCell struct {
	CellType string   `json:"cell_type"`
	Source   nbSource `json:"source"`
	// Input carries the source of format-3 code cells.
	Input nbSource `json:"input"`
}

type nbDocument struct {
	NBFormat   int      `json:"nbformat"`
	Cells      []nbCell `json:"cells"`
	Worksheets []struct {
		Cells []nbCell `json:"cells"`
	} `json:"worksheets"`
}

// notebookText concatenates the source of every code and markdown cell, in
// document order. Output streams and display data are deliberately not
// indexed; they are noisy and low value.
func notebookText(raw []byte) (string, error) {
	var nb nbDocument
	if err := json.Unmarshal(raw, &nb); err != nil {
		return "", fmt.Errorf("parsing notebook: %w", err)
	}

	cells := nb.Cells
	if len(cells) == 0 {
		for _, ws := range nb.Worksheets {
			cells = append(cells, ws.Cells...)
		}
	}
	if nb.NBFormat == 0 && len(cells) == 0 {
		return "", fmt.Errorf("parsing notebook: no cells present")
	}

	var parts []string
	for _, cell := range cells {
		if cell.CellType != "code" && cell.CellType != "markdown" {
			continue
		}
		src := string(cell.Source)
		if src == "" && cell.CellType == "code" {
			src = string(cell.Input)
		}
		parts = append(parts, src)
	}
	return strings.Join(parts, "\n"), nil
}

// decodeNotebook fetches the full notebook body and extracts cell sources.
// Parse failures are logged per object and never fail the record.
func decodeNotebook(_ *Extractor, _ context.Context, ref objstore.Ref, _ string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	if !utf8.Valid(raw) {
		logger.Warn("notebook is not valid UTF-8, indexing metadata only",
			"bucket", ref.Bucket,
			"key", ref.Key)
		return "", nil
	}

	text, err := notebookText(raw)
	if err != nil {
		logger.Warn("unable to parse notebook, indexing metadata only",
			"bucket", ref.Bucket,
			"key", ref.Key,
			"error", err.Error())
		return "", nil
	}
	return text, nil
}
