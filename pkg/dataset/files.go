package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const maxLineBytes = 16 << 20

type basketLine struct {
	Items []string `json:"items"`
}

// LoadBaskets reads JSONL transactions, one {"items": [...]} object per line.
func LoadBaskets(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open baskets %s", path)
	}
	defer f.Close()

	return ReadBaskets(f)
}

// ReadBaskets decodes JSONL transactions from r. Blank lines are skipped.
func ReadBaskets(r io.Reader) ([][]string, error) {
	var baskets [][]string
	err := eachLine(r, func(lineNo int, line []byte) error {
		var b basketLine
		if err := json.Unmarshal(line, &b); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		baskets = append(baskets, b.Items)
		return nil
	})
	return baskets, err
}

// LoadVectors reads JSONL vectors, one {"id": ..., "values": [...]} object per line.
func LoadVectors(path string) ([]types.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open vectors %s", path)
	}
	defer f.Close()

	return ReadVectors(f)
}

// ReadVectors decodes JSONL vectors from r. Lines without an id get their line number.
func ReadVectors(r io.Reader) ([]types.Vector, error) {
	var vectors []types.Vector
	err := eachLine(r, func(lineNo int, line []byte) error {
		var v types.Vector
		if err := json.Unmarshal(line, &v); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		if len(v.Values) == 0 {
			return errors.InvalidParameter("values", "line %d has no values", lineNo)
		}
		if v.ID == "" {
			v.ID = strconv.Itoa(lineNo)
		}
		vectors = append(vectors, v)
		return nil
	})
	return vectors, err
}

func eachLine(r io.Reader, fn func(lineNo int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(lineNo, []byte(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan jsonl")
	}
	return nil
}
