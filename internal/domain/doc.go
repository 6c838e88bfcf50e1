// Package domain models the per-district records produced by the gerontech
// demand pipeline and the parameter set that drives every computation.
//
// # Data Sources
//
// Inputs are table exports from the Hong Kong Census and Statistics Department
// (C&SD) and the Hospital Authority. They are spreadsheet exports, not a designed
// protocol: each file starts with a variable number of title rows, carries
// footnotes at the bottom, and the column layout changes between vintages.
//
//	Table 1.2     proportion of population by District Council district and age
//	Table 2.1     labour force by district and sex
//	Table 2.2     labour force participation rate by district and sex
//	Table 3.1     domestic households by district and type (economically active/inactive)
//	Table 3.2     median monthly household income by district
//	Deaths, YYYY  registered deaths by leading cause, sex and age group (one file per year)
//	IPDPDD        inpatient discharges and deaths by disease group (xlsx)
//
// The elderly (65+) population series per district is not read from a file.
// It ships with the parameter set and is the one source the pipeline cannot
// run without (see [ErrBaseSourceMissing]).
//
// # Districts
//
// The unit of analysis is the District Council district. The set is closed:
// 18 names, listed in the parameter set. Source rows naming anything else
// ("Whole Territory", section headers, footnotes) are dropped during ingestion.
//
// # Units
//
//	Income:         HK$ per month, e.g. "HK$ 31,300" -> 31300
//	Households:     thousands in Table 3.1, scaled to units on ingest
//	Age proportion: percent (0-100)
//	Inactive ratio: fraction (0-1), inactive households / all households
//	Population:     persons; total population by district is in thousands
//
// # Scores
//
// Component scores are min-max normalized to [0,1] across the district cohort.
// A zero-variance indicator scores 0.5 for every district. Demand potential is
// the weighted composite of the elderly, income and inactivity scores scaled to
// [0,100] and clamped.
package domain
