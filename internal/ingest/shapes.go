package ingest

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
)

// Canonical column names shared by the source schemas and their consumers.
const (
	ColYear     = "Year"
	ColDistrict = "District"

	ColIncomeActive = "Income_active"
	ColIncomeAll    = "Income_all"

	ColActive   = "Economically_active"
	ColInactive = "Economically_inactive"
	ColTotal    = "Total"

	ColAge65Plus = "Age_65_plus"

	ColLabourBoth        = "Both sexes"
	ColParticipationBoth = "Both_pct"

	ColDisease = "Disease"
	ColICD10   = "ICD10"

	ColCause    = "Cause of death"
	ColSex      = "Sex"
	ColAgeGroup = "Age group"
	ColCount    = "Count"
)

// Lead classifies the first data cell of a table.
type Lead int

const (
	AnyLead Lead = iota
	YearLead
	DistrictLead
)

func (l Lead) String() string {
	switch l {
	case YearLead:
		return "year"
	case DistrictLead:
		return "district"
	default:
		return "any"
	}
}

// Shape is one known column layout of a source. A table matches a shape when
// its width equals Width (or is at least Width for open shapes) and its first
// data cell has the expected lead.
type Shape struct {
	Name    string
	Width   int
	Lead    Lead
	Columns []string
	// Drop lists canonical columns removed after renaming.
	Drop []string
	// Open shapes accept wider tables. Extra columns keep their header names
	// when KeepExtra is set and are dropped otherwise.
	Open      bool
	KeepExtra bool
	// Copy adds a column (key) duplicating an existing one (value).
	Copy map[string]string
}

// IncomeShapes are the layouts seen in the median household income table.
var IncomeShapes = []Shape{
	{
		Name: "income_short", Width: 2,
		Columns: []string{ColDistrict, ColIncomeAll},
		Copy:    map[string]string{ColIncomeActive: ColIncomeAll},
	},
	{
		Name: "income_district_led", Width: 3,
		Columns: []string{ColDistrict, ColIncomeActive, ColIncomeAll},
	},
	{
		Name: "income_year_led", Width: 4, Lead: YearLead,
		Columns: []string{ColYear, ColDistrict, ColIncomeActive, ColIncomeAll},
	},
	{
		Name: "income_district_led_extra", Width: 4, Lead: DistrictLead,
		Columns: []string{ColDistrict, ColIncomeActive, ColIncomeAll, "Extra"},
		Drop:    []string{"Extra"},
	},
	{
		Name: "income_year_led_extra", Width: 5,
		Columns: []string{ColYear, ColDistrict, ColIncomeActive, ColIncomeAll, "Extra"},
		Drop:    []string{"Extra"},
	},
}

// HouseholdShapes are the layouts seen in the domestic households table.
var HouseholdShapes = []Shape{
	{
		Name: "households_district_led", Width: 4, Lead: DistrictLead,
		Columns: []string{ColDistrict, ColActive, ColInactive, ColTotal},
	},
	{
		Name: "households_year_led_no_total", Width: 4, Lead: YearLead,
		Columns: []string{ColYear, ColDistrict, ColActive, ColInactive},
	},
	{
		Name: "households_year_led", Width: 5, Lead: YearLead,
		Columns: []string{ColYear, ColDistrict, ColActive, ColInactive, ColTotal},
	},
}

var (
	// AgeShapes covers the age-group proportion table.
	AgeShapes = []Shape{{
		Name: "age_groups", Width: 5, Open: true,
		Columns: []string{ColDistrict, "Age_0_14", "Age_15_24", "Age_25_64", ColAge65Plus},
	}}

	// LabourForceShapes covers the labour force by sex table.
	LabourForceShapes = []Shape{{
		Name: "labour_force", Width: 4, Open: true,
		Columns: []string{ColDistrict, "Male", "Female", ColLabourBoth},
	}}

	// ParticipationShapes covers the participation rate by sex table.
	ParticipationShapes = []Shape{{
		Name: "labour_participation", Width: 4, Open: true,
		Columns: []string{ColDistrict, "Male_pct", "Female_pct", ColParticipationBoth},
	}}

	// DischargeShapes names the two leading columns and keeps the year headers.
	DischargeShapes = []Shape{{
		Name: "discharges", Width: 2, Open: true, KeepExtra: true,
		Columns: []string{ColDisease, ColICD10},
	}}
)

var yearLike = regexp.MustCompile(`^(19|20)\d{2}$`)

// leadOf classifies a cell as a year or a district label.
func leadOf(cell string) Lead {
	cell = strings.TrimSpace(cell)
	if yearLike.MatchString(cell) || strings.Contains(cell, "Year") {
		return YearLead
	}
	return DistrictLead
}

func (s Shape) matches(width int, lead Lead) bool {
	if s.Open {
		if width < s.Width {
			return false
		}
	} else if width != s.Width {
		return false
	}
	return s.Lead == AnyLead || s.Lead == lead
}

// resolveShape picks the first shape matching the table's width and lead.
func resolveShape(shapes []Shape, t *Table) (Shape, error) {
	width := len(t.Columns)
	lead := DistrictLead
	if len(t.Rows) > 0 && len(t.Rows[0]) > 0 {
		lead = leadOf(t.Rows[0][0])
	}
	for _, s := range shapes {
		if s.matches(width, lead) {
			return s, nil
		}
	}
	return Shape{}, fmt.Errorf("%w: %d columns with %s lead", domain.ErrSchemaMismatch, width, lead)
}

// apply renames the table's columns to the shape's canonical names.
func (s Shape) apply(t *Table) {
	named := len(s.Columns)
	cols := make([]string, 0, len(t.Columns))
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		switch {
		case i < named:
			if slices.Contains(s.Drop, s.Columns[i]) {
				continue
			}
			cols = append(cols, s.Columns[i])
		case s.KeepExtra:
			cols = append(cols, c)
		default:
			continue
		}
		keep = append(keep, i)
	}

	t.Columns = cols
	for i, row := range t.Rows {
		t.Rows[i] = pick(row, keep)
	}

	for dst, src := range s.Copy {
		j := t.Col(src)
		if j < 0 || t.Has(dst) {
			continue
		}
		t.Columns = append(t.Columns, dst)
		for i, row := range t.Rows {
			t.Rows[i] = append(row, row[j])
		}
	}
}
