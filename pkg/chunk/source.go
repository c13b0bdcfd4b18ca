package chunk

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spanplan/spanplan/pkg/safeconv"
)

// Sentinel parse errors.
var (
	// ErrEmptyInput is returned when the stream holds no header line.
	ErrEmptyInput = errors.New("empty chunk stream")
	// ErrBadHeader is returned when the header line is not "total latency bandwidth".
	ErrBadHeader = errors.New("bad header: want \"total latency bandwidth\"")
	// ErrBadRecord is returned when a chunk line is not a "start end" pair.
	ErrBadRecord = errors.New("bad chunk record: want \"start end\"")
)

// Request is everything a chunk source produces: the byte range to cover and
// the link parameters the cost model is built from.
type Request struct {
	Total     uint32  // bytes to cover, [0, Total)
	Latency   float64 // one-way latency, seconds
	Bandwidth float64 // bytes per second
	Chunks    []Chunk // raw records, not yet normalized
}

// headerFields is the number of whitespace-separated fields in the header line.
const headerFields = 3

// recordFields is the number of whitespace-separated fields in a chunk line.
const recordFields = 2

// ParseText reads the plain-text chunk stream format: a header line
// "total latency bandwidth" followed by one "start end" pair per line.
// Blank lines and lines starting with '#' are skipped.
func ParseText(reader io.Reader) (*Request, error) {
	scanner := bufio.NewScanner(reader)

	request, err := parseTextHeader(scanner)
	if err != nil {
		return nil, err
	}

	lineNo := 1

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		record, recErr := parseTextRecord(line)
		if recErr != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, recErr)
		}

		request.Chunks = append(request.Chunks, record)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("read chunk stream: %w", scanErr)
	}

	return request, nil
}

func parseTextHeader(scanner *bufio.Scanner) (*Request, error) {
	if !scanner.Scan() {
		if scanErr := scanner.Err(); scanErr != nil {
			return nil, fmt.Errorf("read chunk stream: %w", scanErr)
		}

		return nil, ErrEmptyInput
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) != headerFields {
		return nil, fmt.Errorf("%w, got %q", ErrBadHeader, scanner.Text())
	}

	total, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: total: %w", ErrBadHeader, err)
	}

	latency, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: latency: %w", ErrBadHeader, err)
	}

	bandwidth, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bandwidth: %w", ErrBadHeader, err)
	}

	return &Request{
		Total:     safeconv.MustUint64ToUint32(total),
		Latency:   latency,
		Bandwidth: bandwidth,
		Chunks:    nil,
	}, nil
}

func parseTextRecord(line string) (Chunk, error) {
	fields := strings.Fields(line)
	if len(fields) != recordFields {
		return Chunk{}, fmt.Errorf("%w, got %q", ErrBadRecord, line)
	}

	start, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: start: %w", ErrBadRecord, err)
	}

	end, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: end: %w", ErrBadRecord, err)
	}

	return Chunk{
		Start: safeconv.MustUint64ToUint32(start),
		End:   safeconv.MustUint64ToUint32(end),
	}, nil
}
