package ingest

import (
	"strconv"

	"github.com/couchcryptid/gerontech-demand-etl/internal/config"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
)

// Source names, used as metric labels and catalog keys.
const (
	SourcePopulationAge       = "population_age"
	SourceHouseholds          = "households"
	SourceIncome              = "income"
	SourceLabourForce         = "labour_force"
	SourceLabourParticipation = "labour_participation"
	SourceHospitalDischarges  = "hospital_discharges"
)

// DeathSourceName returns the source name of one year's death records.
func DeathSourceName(year int) string {
	return "deaths_" + strconv.Itoa(year)
}

// Source describes how one raw table is turned into a canonical Table.
type Source struct {
	Name     string
	SkipRows int
	// Shapes lists the accepted layouts. Empty keeps header names as-is.
	Shapes []Shape
	// HeaderMatch renames header columns by case-insensitive substring.
	HeaderMatch []Rename
	// Keywords drops rows whose first cell or district cell contains any entry.
	Keywords []string
	// Districts canonicalizes the District column and drops unknown names.
	Districts bool
	// BaseYearOnly keeps only base-year rows when the table has a Year column.
	BaseYearOnly bool
}

// Rename maps header columns containing Substr onto Column.
type Rename struct {
	Substr string
	Column string
}

// Schemas returns the schema of every district-level and hospital source.
func Schemas(p *domain.Params) map[string]Source {
	nonData := p.Keywords.NonData
	labour := append(append([]string(nil), nonData...), "Year")

	return map[string]Source{
		SourcePopulationAge: {
			Name: SourcePopulationAge, SkipRows: 3, Shapes: AgeShapes,
			Keywords: nonData, Districts: true,
		},
		SourceHouseholds: {
			Name: SourceHouseholds, SkipRows: 3, Shapes: HouseholdShapes,
			Keywords: nonData, Districts: true, BaseYearOnly: true,
		},
		SourceIncome: {
			Name: SourceIncome, SkipRows: 3, Shapes: IncomeShapes,
			Keywords: nonData, Districts: true, BaseYearOnly: true,
		},
		SourceLabourForce: {
			Name: SourceLabourForce, SkipRows: 2, Shapes: LabourForceShapes,
			Keywords: labour, Districts: true,
		},
		SourceLabourParticipation: {
			Name: SourceLabourParticipation, SkipRows: 2, Shapes: ParticipationShapes,
			Keywords: labour, Districts: true,
		},
		SourceHospitalDischarges: {
			Name: SourceHospitalDischarges, SkipRows: 2, Shapes: DischargeShapes,
		},
	}
}

// DeathSchema returns the schema of a yearly death-record export. Columns are
// found by header name since the layout varies between years.
func DeathSchema(year int) Source {
	return Source{
		Name: DeathSourceName(year),
		HeaderMatch: []Rename{
			{Substr: "cause", Column: ColCause},
			{Substr: "sex", Column: ColSex},
			{Substr: "age", Column: ColAgeGroup},
			{Substr: "count", Column: ColCount},
		},
	}
}

// Files maps source names to paths on disk.
type Files struct {
	Tables map[string]string
	Deaths map[int]string
}

// FilesFromConfig resolves the configured file names under the data directory.
func FilesFromConfig(cfg *config.Config) Files {
	s := cfg.Sources
	return Files{
		Tables: map[string]string{
			SourcePopulationAge:       cfg.Path(s.PopulationAge),
			SourceHouseholds:          cfg.Path(s.Households),
			SourceIncome:              cfg.Path(s.Income),
			SourceLabourForce:         cfg.Path(s.LabourForce),
			SourceLabourParticipation: cfg.Path(s.LabourParticipation),
			SourceHospitalDischarges:  cfg.Path(s.HospitalDischarges),
		},
		Deaths: cfg.DeathFiles(),
	}
}
