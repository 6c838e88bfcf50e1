// Command genmock writes synthetic statistics bureau exports so the pipeline
// can be exercised without the real downloads. Every income and household
// layout the ingest stage recognizes can be selected, and sources can be left
// out to exercise the fallback chains.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -seed 42 \
//	  -income-layout income_year_led -household-layout households_district_led \
//	  -omit labour_participation,deaths_2022
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "directory to write the raw source files into")
	seed := flag.Uint64("seed", 1, "random seed; equal seeds give identical files")
	paramsFile := flag.String("params", "", "parameter set YAML (default: embedded Hong Kong set)")
	incomeLayout := flag.String("income-layout", mockdata.DefaultIncomeLayout, "income table layout")
	householdLayout := flag.String("household-layout", mockdata.DefaultHouseholdLayout, "household table layout")
	omit := flag.String("omit", "", "comma-separated source names to leave out")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	p, err := loadParams(*paramsFile)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}

	opts := mockdata.Options{
		Seed:            *seed,
		IncomeLayout:    *incomeLayout,
		HouseholdLayout: *householdLayout,
		Omit:            splitList(*omit),
	}
	if err := mockdata.Write(*out, p, opts); err != nil {
		return err
	}

	entries, err := os.ReadDir(*out)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		log.Printf("wrote %s", n)
	}
	log.Printf("total: %d files in %s (seed %d)", len(names), *out, *seed)
	return nil
}

func loadParams(path string) (*domain.Params, error) {
	if path == "" {
		return domain.DefaultParams()
	}
	return domain.LoadParams(path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
