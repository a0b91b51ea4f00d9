package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
)

// decodeText renders a bounded line preview of a plain-text object. Bodies
// that do not decode as UTF-8 are logged and yield empty text.
func decodeText(e *Extractor, _ context.Context, ref objstore.Ref, _ string, r io.Reader) (string, error) {
	lines, err := previewLines(r, e.lineLimit, e.byteLimit)
	if err != nil {
		return "", fmt.Errorf("reading s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}

	text := strings.Join(lines, "\n")
	if !utf8.ValidString(text) {
		logger.Warn("object is not valid UTF-8, indexing metadata only",
			"bucket", ref.Bucket,
			"key", ref.Key)
		return "", nil
	}
	return text, nil
}

// previewLines reads lines from r until maxLines or maxBytes is reached. A
// truncated trailing stream (the tail of a ranged fetch, compressed or not)
// ends the preview rather than failing it.
func previewLines(r io.Reader, maxLines, maxBytes int) ([]string, error) {
	br := bufio.NewReader(r)
	var (
		lines []string
		total int
	)
	for len(lines) < maxLines && total < maxBytes {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			total += len(line)
			lines = append(lines, line)
		}
		if err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
	}
	return lines, nil
}
