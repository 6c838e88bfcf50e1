package ingest

import (
	"context"
	"sort"
)

// Catalog holds the outcome of every source read during a run.
type Catalog struct {
	results map[string]Result
	deaths  map[int]Result
}

// Load reads every configured source. Sources without a path are skipped and
// read as unavailable.
func Load(ctx context.Context, r *Reader, files Files) *Catalog {
	c := &Catalog{
		results: make(map[string]Result),
		deaths:  make(map[int]Result),
	}

	schemas := Schemas(r.params)
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path, ok := files.Tables[name]
		if !ok || path == "" {
			continue
		}
		c.results[name] = r.Read(ctx, schemas[name], path)
	}

	for _, year := range sortedYears(files.Deaths) {
		c.deaths[year] = r.Read(ctx, DeathSchema(year), files.Deaths[year])
	}
	return c
}

// Table returns the parsed table of a source when it was available.
func (c *Catalog) Table(name string) (*Table, bool) {
	res, ok := c.results[name]
	if !ok || !res.Available() {
		return nil, false
	}
	return res.Table, true
}

// Deaths returns the available death-record tables by year.
func (c *Catalog) Deaths() map[int]*Table {
	out := make(map[int]*Table, len(c.deaths))
	for year, res := range c.deaths {
		if res.Available() {
			out[year] = res.Table
		}
	}
	return out
}

// Status reports the outcome label of every attempted source.
func (c *Catalog) Status() map[string]string {
	out := make(map[string]string, len(c.results)+len(c.deaths))
	for name, res := range c.results {
		out[name] = res.Status()
	}
	for _, res := range c.deaths {
		out[res.Source] = res.Status()
	}
	return out
}

func sortedYears[V any](m map[int]V) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Extractor reads a fixed file set on every call. It implements
// pipeline.Extractor.
type Extractor struct {
	reader *Reader
	files  Files
}

// NewExtractor binds a Reader to the files of one configuration.
func NewExtractor(r *Reader, files Files) *Extractor {
	return &Extractor{reader: r, files: files}
}

// Extract reads every source into a Catalog.
func (e *Extractor) Extract(ctx context.Context) *Catalog {
	return Load(ctx, e.reader, e.files)
}
