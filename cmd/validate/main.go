// Command validate checks a directory of emitted artifacts against the
// invariants every pipeline run guarantees: the closed district set, score
// ranges, the service gap identity, forecast totals, the demand floor, the
// scenario arithmetic and the morbidity table limits.
//
// Usage:
//
//	go run ./cmd/validate -dir outputs [-params params.yaml]
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/gerontech-demand-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/morbidity"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "outputs", "directory containing the emitted CSV artifacts")
	paramsFile := flag.String("params", "", "parameter set YAML used for the run (default: embedded)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*dir, *paramsFile))
}

func run(dir, paramsFile string) int {
	p, err := loadParams(paramsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load parameters: %v\n", err)
		return 1
	}

	fmt.Println("=== Gerontech Demand Artifact Validation ===")
	fmt.Println()

	tables, err := loadArtifacts(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := validate(tables, p)

	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", ph.name, status)
	}

	fmt.Println()
	for _, name := range artifact.Names {
		fmt.Printf("  %-24s %d rows\n", name, len(tables[name]))
	}

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadParams(path string) (*domain.Params, error) {
	if path == "" {
		return domain.DefaultParams()
	}
	return domain.LoadParams(path)
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func (r csvRow) number(p *phase, col string) (float64, bool) {
	v, err := strconv.ParseFloat(r.fields[col], 64)
	if err != nil {
		p.errorf("line %d: %s=%q is not a number", r.lineNum, col, r.fields[col])
		return 0, false
	}
	return v, true
}

func (r csvRow) integer(p *phase, col string) (int, bool) {
	v, err := strconv.Atoi(r.fields[col])
	if err != nil {
		p.errorf("line %d: %s=%q is not an integer", r.lineNum, col, r.fields[col])
		return 0, false
	}
	return v, true
}

// loadArtifacts reads every artifact file in dir. A missing file is fatal;
// an empty artifact is a header-only file.
func loadArtifacts(dir string) (map[string][]csvRow, error) {
	out := make(map[string][]csvRow, len(artifact.Names))
	for _, name := range artifact.Names {
		rows, err := loadCSV(csvfile.Path(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = rows
	}
	return out, nil
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("missing header row in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

// ── Validation phases ──

func validate(tables map[string][]csvRow, p *domain.Params) []*phase {
	return []*phase{
		validateDistrictMaster(tables[artifact.DistrictMaster], p),
		validateServiceGaps(tables[artifact.ServiceGaps], tables[artifact.DistrictMaster]),
		validateForecast(tables[artifact.ForecastElderly], p),
		validateEquipment(tables[artifact.EquipmentDemand], p),
		validateScenario(tables[artifact.PandemicScenario], p),
		validateMorbidity(tables, p),
	}
}

func validateDistrictMaster(rows []csvRow, p *domain.Params) *phase {
	ph := &phase{name: "District master: closed set and score ranges"}

	if len(rows) != len(p.Districts) {
		ph.errorf("row count: got %d, want %d", len(rows), len(p.Districts))
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		d := r.fields["district_id"]
		if !slices.Contains(p.Districts, d) {
			ph.errorf("line %d: unknown district %q", r.lineNum, d)
		}
		if seen[d] {
			ph.errorf("line %d: duplicate district %q", r.lineNum, d)
		}
		seen[d] = true

		if v, ok := r.number(ph, "demand_potential"); ok && (v < 0 || v > 100) {
			ph.errorf("line %d: demand_potential %v outside [0,100]", r.lineNum, v)
		}
		for _, col := range []string{"income_score", "elderly_score", "inactive_score"} {
			if v, ok := r.number(ph, col); ok && (v < 0 || v > 1) {
				ph.errorf("line %d: %s %v outside [0,1]", r.lineNum, col, v)
			}
		}
		for _, col := range []string{"income_source", "inactive_source", "age_source"} {
			if r.fields[col] == "" {
				ph.errorf("line %d: %s is empty", r.lineNum, col)
			}
		}
		if v := r.fields["inactive_ratio"]; v != "" {
			if f, ok := r.number(ph, "inactive_ratio"); ok && (f < 0 || f > 1) {
				ph.errorf("line %d: inactive_ratio %v outside [0,1]", r.lineNum, f)
			}
		}
	}
	for _, d := range p.Districts {
		if !seen[d] {
			ph.errorf("district %q missing", d)
		}
	}
	return ph
}

func validateServiceGaps(rows, districts []csvRow) *phase {
	ph := &phase{name: "Service gaps: gap identity and labels"}

	demand := make(map[string]string, len(districts))
	for _, r := range districts {
		demand[r.fields["district_id"]] = r.fields["demand_potential"]
	}
	if len(rows) != len(districts) {
		ph.errorf("row count: got %d, want %d", len(rows), len(districts))
	}

	prevGap := math.Inf(1)
	for _, r := range rows {
		d, ok1 := r.number(ph, "demand_potential")
		s, ok2 := r.number(ph, "estimated_service")
		g, ok3 := r.number(ph, "service_gap")
		if ok1 && ok2 && ok3 {
			if g != d-s {
				ph.errorf("line %d: service_gap %v != %v - %v", r.lineNum, g, d, s)
			}
			if g > prevGap {
				ph.errorf("line %d: not sorted by service_gap descending", r.lineNum)
			}
			prevGap = g
		}
		if s < 0 || s > 100 {
			ph.errorf("line %d: estimated_service %v outside [0,100]", r.lineNum, s)
		}

		tier := r.fields["tier"]
		if tier != "3" && demand[r.fields["district_id"]] != r.fields["demand_potential"] {
			ph.errorf("line %d: demand_potential differs from district master", r.lineNum)
		}
		if !slices.Contains([]string{"1", "2", "3"}, tier) {
			ph.errorf("line %d: tier %q", r.lineNum, tier)
		}
		if st := r.fields["gap_status"]; st != domain.Underserved && st != domain.WellServed {
			ph.errorf("line %d: gap_status %q", r.lineNum, st)
		}
		if pr := r.fields["priority"]; pr != domain.PriorityLow && pr != domain.PriorityMedium && pr != domain.PriorityHigh {
			ph.errorf("line %d: priority %q", r.lineNum, pr)
		}
	}
	return ph
}

func validateForecast(rows []csvRow, p *domain.Params) *phase {
	ph := &phase{name: "Forecast: territory total equals district sum"}

	if len(rows) == 0 {
		ph.errorf("no forecast rows")
		return ph
	}
	total := rows[len(rows)-1]
	if total.fields["aggregate"] != "true" || total.fields["district_id"] != p.TerritoryLabel {
		ph.errorf("line %d: last row is not the %q aggregate", total.lineNum, p.TerritoryLabel)
		return ph
	}

	for _, year := range p.ForecastYears {
		col := strconv.Itoa(year)
		sum := 0
		for _, r := range rows[:len(rows)-1] {
			v, ok := r.integer(ph, col)
			if !ok {
				continue
			}
			if v < 0 {
				ph.errorf("line %d: negative prediction %d for %d", r.lineNum, v, year)
			}
			sum += v
		}
		if want, ok := total.integer(ph, col); ok && want != sum {
			ph.errorf("year %d: territory total %d != district sum %d", year, want, sum)
		}
	}
	for _, r := range rows {
		if v, ok := r.number(ph, "r2_score"); ok && (v < 0 || v > 1+1e-9) {
			ph.errorf("line %d: r2_score %v outside [0,1]", r.lineNum, v)
		}
	}
	return ph
}

func validateEquipment(rows []csvRow, p *domain.Params) *phase {
	ph := &phase{name: "Equipment demand: floor and keys"}

	type key struct {
		district, category string
		year               int
	}
	seen := make(map[key]bool, len(rows))
	for _, r := range rows {
		v, ok := r.integer(ph, "estimated_demand")
		if ok && v <= p.Equipment.MinDemand {
			ph.errorf("line %d: estimated_demand %d at or below %d", r.lineNum, v, p.Equipment.MinDemand)
		}
		year, ok := r.integer(ph, "year")
		if ok && !slices.Contains(p.ForecastYears, year) {
			ph.errorf("line %d: year %d outside forecast horizon", r.lineNum, year)
		}
		k := key{r.fields["district_id"], r.fields["category"], year}
		if seen[k] {
			ph.errorf("line %d: duplicate row for %v", r.lineNum, k)
		}
		seen[k] = true
		if r.fields["district_id"] == p.TerritoryLabel {
			ph.errorf("line %d: territory aggregate projected", r.lineNum)
		}
	}
	return ph
}

func validateScenario(rows []csvRow, p *domain.Params) *phase {
	ph := &phase{name: "Scenario: multiplier arithmetic"}

	for _, r := range rows {
		normal, ok1 := r.integer(ph, "normal_demand")
		scenario, ok2 := r.integer(ph, "scenario_demand")
		diff, ok3 := r.integer(ph, "difference")
		m, ok4 := r.number(ph, "multiplier")
		if !(ok1 && ok2 && ok3 && ok4) {
			continue
		}
		if want := p.Multiplier(r.fields["category"]); m != want {
			ph.errorf("line %d: multiplier %v, want %v", r.lineNum, m, want)
		}
		if want := int(math.Floor(float64(normal)*m + 1e-6)); scenario != want {
			ph.errorf("line %d: scenario_demand %d, want %d", r.lineNum, scenario, want)
		}
		if diff != scenario-normal {
			ph.errorf("line %d: difference %d != %d - %d", r.lineNum, diff, scenario, normal)
		}
	}
	return ph
}

func validateMorbidity(tables map[string][]csvRow, p *domain.Params) *phase {
	ph := &phase{name: "Morbidity: rankings and limits"}

	deaths := tables[artifact.DeathsByCause]
	prev := math.Inf(1)
	for _, r := range deaths {
		if strings.Contains(r.fields["cause"], "ICD-10") {
			ph.errorf("line %d: cause %q keeps its ICD-10 suffix", r.lineNum, r.fields["cause"])
		}
		if v, ok := r.number(ph, "total"); ok {
			if v > prev {
				ph.errorf("line %d: deaths not sorted by total descending", r.lineNum)
			}
			prev = v
		}
	}

	discharges := tables[artifact.HospitalDischarges]
	if len(discharges) > morbidity.TopDischarges {
		ph.errorf("hospital_discharges: %d rows, limit %d", len(discharges), morbidity.TopDischarges)
	}

	overlooked := tables[artifact.OverlookedConditions]
	if len(overlooked) > morbidity.TopOverlooked {
		ph.errorf("overlooked_conditions: %d rows, limit %d", len(overlooked), morbidity.TopOverlooked)
	}
	for _, r := range overlooked {
		name := strings.ToLower(r.fields["disease"])
		for _, k := range p.Keywords.OverlookedExclude {
			if strings.Contains(name, strings.ToLower(k)) {
				ph.errorf("line %d: overlooked condition %q matches %q", r.lineNum, r.fields["disease"], k)
			}
		}
	}
	return ph
}
