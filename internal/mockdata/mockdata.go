// Package mockdata writes synthetic statistics bureau exports in every layout
// the ingest stage accepts, so the pipeline can run end to end without the
// real downloads.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"maps"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/gerontech-demand-etl/internal/config"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
	"github.com/xuri/excelize/v2"
)

// Options selects the layouts written and the sources left out.
type Options struct {
	Seed uint64
	// IncomeLayout and HouseholdLayout name an ingest shape; empty picks the default.
	IncomeLayout    string
	HouseholdLayout string
	// Omit lists source names not to write, to exercise fallbacks.
	Omit []string
	// DeathYears defaults to the configured death-record years.
	DeathYears []int
}

// Layout names accepted in Options.
const (
	DefaultIncomeLayout    = "income_district_led"
	DefaultHouseholdLayout = "households_year_led"
)

var causes = []string{
	"Malignant neoplasms (ICD-10: C00-C97)",
	"Pneumonia (ICD-10: J12-J18)",
	"Diseases of heart (ICD-10: I00-I09, I11, I13, I20-I51)",
	"Cerebrovascular diseases (ICD-10: I60-I69)",
	"Septicaemia (ICD-10: A40-A41)",
	"Dementia† (ICD-10: F01-F03)",
	"Nephritis, nephrotic syndrome and nephrosis (ICD-10: N00-N07, N17-N19, N25-N27)",
	"Chronic lower respiratory diseases (ICD-10: J40-J47)",
}

var diseaseGroups = [][2]string{
	{"Malignant neoplasms", "C00-C97"},
	{"Heart diseases", "I00-I52"},
	{"Pneumonia", "J12-J18"},
	{"Cerebrovascular diseases", "I60-I69"},
	{"Diseases of the eye and adnexa", "H00-H59"},
	{"Diseases of the musculoskeletal system", "M00-M99"},
	{"Injury and poisoning", "S00-T98"},
	{"Diseases of the urinary system", "N00-N39"},
	{"Diabetes mellitus", "E10-E14"},
	{"Dementia", "F00-F03"},
	{"Chronic obstructive pulmonary disease", "J40-J44"},
	{"Hip fracture", "S72"},
	{"Cataract", "H25-H26"},
	{"Osteoarthritis", "M15-M19"},
	{"Parkinson disease", "G20"},
	{"Depressive episode", "F32-F33"},
	{"Hearing loss", "H90-H91"},
	{"Urinary incontinence", "N39.3-N39.4"},
	{"Falls", "W00-W19"},
	{"Anaemias", "D50-D64"},
	{"COVID-19", "U07.1"},
	{"Hypertensive diseases", "I10-I15"},
}

// Write generates every raw source under dir using the default file names.
func Write(dir string, p *domain.Params, opts Options) error {
	if opts.IncomeLayout == "" {
		opts.IncomeLayout = DefaultIncomeLayout
	}
	if opts.HouseholdLayout == "" {
		opts.HouseholdLayout = DefaultHouseholdLayout
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	g := &generator{p: p, rng: rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))}
	names := config.DefaultSources()

	writers := []struct {
		source string
		file   string
		write  func(path string) error
	}{
		{ingest.SourcePopulationAge, names.PopulationAge, g.age},
		{ingest.SourceHouseholds, names.Households, func(path string) error { return g.households(path, opts.HouseholdLayout) }},
		{ingest.SourceIncome, names.Income, func(path string) error { return g.income(path, opts.IncomeLayout) }},
		{ingest.SourceLabourForce, names.LabourForce, g.labourForce},
		{ingest.SourceLabourParticipation, names.LabourParticipation, g.participation},
		{ingest.SourceHospitalDischarges, names.HospitalDischarges, g.discharges},
	}
	for _, w := range writers {
		if slices.Contains(opts.Omit, w.source) {
			continue
		}
		if err := w.write(filepath.Join(dir, w.file)); err != nil {
			return fmt.Errorf("write %s: %w", w.source, err)
		}
	}

	years := opts.DeathYears
	if years == nil {
		years = slices.Sorted(maps.Keys(names.Deaths))
	}
	for _, year := range years {
		source := ingest.DeathSourceName(year)
		if slices.Contains(opts.Omit, source) {
			continue
		}
		if err := g.deaths(filepath.Join(dir, names.Deaths[year][0]), year); err != nil {
			return fmt.Errorf("write %s: %w", source, err)
		}
	}
	return nil
}

type generator struct {
	p   *domain.Params
	rng *rand.Rand
}

// between returns a value in [lo, hi) rounded to one decimal place.
func (g *generator) between(lo, hi float64) float64 {
	v := lo + g.rng.Float64()*(hi-lo)
	return float64(int(v*10+0.5)) / 10
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// money formats an amount the way the bureau exports do, with a currency
// prefix and thousands separators on some rows.
func (g *generator) money(v int) string {
	s := strconv.Itoa(v)
	if g.rng.IntN(3) != 0 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return "HK$ " + string(out)
}

// preamble returns the title rows that precede the header. Each row has at
// least two cells so csv readers do not drop it as blank.
func preamble(title string, rows int) [][]string {
	out := [][]string{{title, ""}, {"", ""}, {"Unit: as stated", ""}}
	return out[:rows]
}

func footer(width int) [][]string {
	total := make([]string, width)
	total[0] = "Whole Territory"
	note := make([]string, width)
	note[0] = "Note(s): Figures may not add up to totals due to rounding."
	return [][]string{total, note}
}

func (g *generator) age(path string) error {
	rows := preamble("Table 1.2 : Proportion of land-based non-institutional population by District Council district and age", 3)
	rows = append(rows, []string{"District Council district", "0 - 14", "15 - 24", "25 - 64", "65 and over"})
	for _, d := range g.p.Districts {
		old := g.between(16, 28)
		young := g.between(9, 14)
		youth := g.between(7, 11)
		rows = append(rows, []string{d, num(young), num(youth), num(100 - old - young - youth), num(old)})
	}
	return writeCSV(path, append(rows, footer(5)...))
}

func (g *generator) households(path, layout string) error {
	rows := preamble("Table 3.1 : Domestic households by District Council district and type of households", 3)
	switch layout {
	case "households_district_led":
		rows = append(rows, []string{"District Council district", "Economically active", "Economically inactive", "Total"})
	case "households_year_led_no_total":
		rows = append(rows, []string{"Year", "District Council district", "Economically active", "Economically inactive"})
	case "households_year_led":
		rows = append(rows, []string{"Year", "District Council district", "Economically active", "Economically inactive", "Total"})
	default:
		return fmt.Errorf("unknown household layout %q", layout)
	}

	base := strconv.Itoa(g.p.BaseYear)
	prev := strconv.Itoa(g.p.BaseYear - 1)
	for _, d := range g.p.Districts {
		active := g.between(40, 200)
		inactive := g.between(12, 90)
		total := num(active + inactive)
		switch layout {
		case "households_district_led":
			rows = append(rows, []string{d, num(active), num(inactive), total})
		case "households_year_led_no_total":
			rows = append(rows,
				[]string{base, d, num(active), num(inactive)},
				[]string{prev, d, num(active * 0.98), num(inactive * 0.96)})
		default:
			rows = append(rows,
				[]string{base, d, num(active), num(inactive), total},
				[]string{prev, d, num(active * 0.98), num(inactive * 0.96), num(active*0.98 + inactive*0.96)})
		}
	}
	return writeCSV(path, rows)
}

func (g *generator) income(path, layout string) error {
	rows := preamble("Table 3.2 : Median monthly domestic household income by District Council district and type of households", 3)
	header := map[string][]string{
		"income_short":              {"District Council district", "All domestic households"},
		"income_district_led":       {"District Council district", "Economically active households", "All domestic households"},
		"income_year_led":           {"Year", "District Council district", "Economically active households", "All domestic households"},
		"income_district_led_extra": {"District Council district", "Economically active households", "All domestic households", "Ratio"},
		"income_year_led_extra":     {"Year", "District Council district", "Economically active households", "All domestic households", "Ratio"},
	}[layout]
	if header == nil {
		return fmt.Errorf("unknown income layout %q", layout)
	}
	rows = append(rows, header)

	base := strconv.Itoa(g.p.BaseYear)
	for _, d := range g.p.Districts {
		all := 20000 + g.rng.IntN(30)*1000
		active := all + 5000 + g.rng.IntN(10)*1000
		ratio := num(float64(active*100/all) / 100)
		switch layout {
		case "income_short":
			rows = append(rows, []string{d, g.money(all)})
		case "income_district_led":
			rows = append(rows, []string{d, g.money(active), g.money(all)})
		case "income_year_led":
			rows = append(rows, []string{base, d, g.money(active), g.money(all)})
		case "income_district_led_extra":
			rows = append(rows, []string{d, g.money(active), g.money(all), ratio})
		case "income_year_led_extra":
			rows = append(rows, []string{base, d, g.money(active), g.money(all), ratio})
		}
	}
	return writeCSV(path, append(rows, footer(len(header))...))
}

func (g *generator) labourForce(path string) error {
	rows := preamble("Table 2.1 : Labour force by District Council district and sex", 2)
	rows = append(rows, []string{"District Council district", "Male", "Female", "Both sexes"})
	for _, d := range g.p.Districts {
		male := g.between(40, 200)
		female := g.between(40, 210)
		rows = append(rows, []string{d, num(male), num(female), num(male + female)})
	}
	return writeCSV(path, append(rows, footer(4)...))
}

func (g *generator) participation(path string) error {
	rows := preamble("Table 2.2 : Labour force participation rate by District Council district and sex", 2)
	rows = append(rows,
		[]string{"District Council district", "Male (%)", "Female (%)", "Both sexes (%)"},
		[]string{"Year " + strconv.Itoa(g.p.BaseYear), "", "", ""},
	)
	for _, d := range g.p.Districts {
		male := g.between(58, 72)
		female := g.between(46, 58)
		rows = append(rows, []string{d, num(male), num(female), num((male + female) / 2)})
	}
	return writeCSV(path, append(rows, footer(4)...))
}

func (g *generator) deaths(path string, year int) error {
	rows := [][]string{{"Cause of death", "Sex", "Age group", "Registered deaths count"}}
	for i, cause := range causes {
		total := (len(causes)-i)*900 + (year-2020)*40 + g.rng.IntN(400)
		male := total * (45 + g.rng.IntN(10)) / 100
		rows = append(rows,
			[]string{cause, "Total", "All ages", strconv.Itoa(total)},
			[]string{cause, "Male", "All ages", strconv.Itoa(male)},
			[]string{cause, "Female", "All ages", strconv.Itoa(total - male)},
			[]string{cause, "Total", "85 and over", strconv.Itoa(total * 2 / 5)},
		)
	}
	return writeCSV(path, rows)
}

// discharges writes the hospital discharge workbook, one column per year
// from well before the historical window up to the base year.
func (g *generator) discharges(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	first := g.p.FirstYear() - 2
	header := []any{"Disease group", "ICD-10 code"}
	for y := first; y <= g.p.BaseYear; y++ {
		header = append(header, strconv.Itoa(y))
	}

	rows := [][]any{
		{"Inpatient discharges and deaths in hospitals by disease group"},
		{"Hospital Authority, Department of Health"},
		header,
	}
	for i, dg := range diseaseGroups {
		row := []any{dg[0], dg[1]}
		level := float64((len(diseaseGroups)-i)*4000 + g.rng.IntN(3000))
		for y := first; y <= g.p.BaseYear; y++ {
			if g.rng.IntN(12) == 0 {
				row = append(row, "")
				continue
			}
			row = append(row, int(level*(0.9+0.2*g.rng.Float64())))
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		[]any{"Overall", "", 999999},
		[]any{"Notes: Figures refer to discharges from public hospitals."},
	)

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
