// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/citegraph/pkg/types"
)

const (
	authorsFile      = "authors.csv"
	topicsFile       = "topics.csv"
	publicationsFile = "publications.csv"
	incomingFile     = "incoming_publications.csv"
)

// CSVSource reads the delimited staging layout: authors.csv, topics.csv,
// publications.csv, and incoming_publications.csv under one directory.
// Every file starts with a header row. The incoming file is optional.
//
// Id-list cells are bracketed ("[101, 205]"); ids are the digit runs in
// the cell, wherever they appear. authors.csv may carry a fifth
// affiliation column and topics.csv a third parent-topic column; both are
// "" when absent. publications files may carry a sixth cited-list column.
type CSVSource struct {
	Dir string
}

// Name implements Source.
func (s *CSVSource) Name() string { return "csv" }

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context) (types.Dataset, error) {
	var ds types.Dataset

	if err := ctx.Err(); err != nil {
		return ds, err
	}
	records, err := loadAuthorRows(filepath.Join(s.Dir, authorsFile))
	if err != nil {
		return ds, err
	}
	topics, err := loadTopicRows(filepath.Join(s.Dir, topicsFile))
	if err != nil {
		return ds, err
	}
	published, err := loadPublicationRows(filepath.Join(s.Dir, publicationsFile), types.StatusPublished, false)
	if err != nil {
		return ds, err
	}
	if err := ctx.Err(); err != nil {
		return ds, err
	}
	incoming, err := loadPublicationRows(filepath.Join(s.Dir, incomingFile), types.StatusIncoming, true)
	if err != nil {
		return ds, err
	}

	ds.Records = records
	ds.Publications = append(published, incoming...)
	ds.Topics = referencedTopics(topics, ds.Publications)
	attachPublications(ds.Records, ds.Publications)
	return ds, nil
}

// readRows parses a CSV file and strips the header row.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

func loadAuthorRows(path string) ([]types.RawAuthorRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	records := make([]types.RawAuthorRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("%s row %d: want 4 columns, got %d", authorsFile, i+2, len(row))
		}
		rec := types.RawAuthorRecord{
			RecordID:       strings.TrimSpace(row[0]),
			Name:           strings.TrimSpace(row[1]),
			ResearchSector: strings.TrimSpace(row[3]),
		}
		if rec.RecordID == "" {
			return nil, fmt.Errorf("%s row %d: empty author_id", authorsFile, i+2)
		}
		if cell := strings.TrimSpace(row[2]); cell != "" {
			rec.HIndex, err = strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: h_index %q: %w", authorsFile, i+2, row[2], err)
			}
		}
		if len(row) > 4 {
			rec.Affiliation = strings.TrimSpace(row[4])
		}
		records = append(records, rec)
	}
	return records, nil
}

func loadTopicRows(path string) ([]types.Topic, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	topics := make([]types.Topic, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s row %d: want 2 columns, got %d", topicsFile, i+2, len(row))
		}
		t := types.Topic{
			ID:   strings.TrimSpace(row[0]),
			Name: strings.TrimSpace(row[1]),
		}
		if t.ID == "" {
			return nil, fmt.Errorf("%s row %d: empty topic_id", topicsFile, i+2)
		}
		if t.Name == "" {
			t.Name = types.TopicNameUnavailable
		}
		if len(row) > 2 {
			t.ParentID = strings.TrimSpace(row[2])
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func loadPublicationRows(path string, status types.PublicationStatus, optional bool) ([]types.Publication, error) {
	rows, err := readRows(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	name := filepath.Base(path)
	pubs := make([]types.Publication, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("%s row %d: want 5 columns, got %d", name, i+2, len(row))
		}
		p := types.Publication{
			ID:        strings.TrimSpace(row[0]),
			AuthorIDs: extractIDs(row[1]),
			TopicIDs:  extractIDs(row[2]),
			DOI:       strings.TrimSpace(row[4]),
			Status:    status,
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%s row %d: empty publication_id", name, i+2)
		}
		if cell := strings.TrimSpace(row[3]); cell != "" {
			p.Year, err = strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: publication_year %q: %w", name, i+2, row[3], err)
			}
		}
		if len(row) > 5 {
			p.CitedPublicationIDs = extractIDs(row[5])
		}
		pubs = append(pubs, p)
	}
	return pubs, nil
}

var idPattern = regexp.MustCompile(`\d+`)

// extractIDs pulls numeric ids out of a bracketed list cell, e.g.
// "['101', '205']" → 101, 205. Taking digit runs wherever they appear
// absorbs the staging layout's quoting quirks.
func extractIDs(cell string) []string {
	return idPattern.FindAllString(cell, -1)
}

// attachPublications fills each record's publication list from the
// publication author lists, so co-authorship overlap is available to the
// resolver.
func attachPublications(records []types.RawAuthorRecord, pubs []types.Publication) {
	byAuthor := make(map[string][]string)
	for _, p := range pubs {
		for _, a := range p.AuthorIDs {
			byAuthor[a] = append(byAuthor[a], p.ID)
		}
	}
	for i := range records {
		ids := byAuthor[records[i].RecordID]
		sort.Strings(ids)
		records[i].PublicationIDs = dedupeSorted(ids)
	}
}

// referencedTopics keeps only topics mentioned by at least one publication,
// plus their taxonomy ancestors so parent links stay intact.
func referencedTopics(topics []types.Topic, pubs []types.Publication) []types.Topic {
	keep := make(map[string]bool)
	queue := make([]string, 0, len(pubs))
	for _, p := range pubs {
		for _, t := range p.TopicIDs {
			if !keep[t] {
				keep[t] = true
				queue = append(queue, t)
			}
		}
	}

	parent := make(map[string]string, len(topics))
	for _, t := range topics {
		parent[t.ID] = t.ParentID
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if p := parent[id]; p != "" && !keep[p] {
			keep[p] = true
			queue = append(queue, p)
		}
	}

	kept := make([]types.Topic, 0, len(topics))
	for _, t := range topics {
		if keep[t.ID] {
			kept = append(kept, t)
		}
	}
	return kept
}

func dedupeSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
