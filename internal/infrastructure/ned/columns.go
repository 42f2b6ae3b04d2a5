package ned

import (
	"math"
	"strconv"
	"strings"

	"TNSDigest/internal/domain"
)

type column int

const (
	colName column = iota
	colRA
	colDec
	colType
	colMagFilter
	colRedshift
	colSeparation
)

var columnAliases = map[string]column{
	"object name":          colName,
	"objname":              colName,
	"ra(deg)":              colRA,
	"ra (deg)":             colRA,
	"ra":                   colRA,
	"dec(deg)":             colDec,
	"dec (deg)":            colDec,
	"dec":                  colDec,
	"type":                 colType,
	"magnitude and filter": colMagFilter,
	"mag_filter":           colMagFilter,
	"redshift":             colRedshift,
	"distance (arcmin)":    colSeparation,
	"distance(arcmin)":     colSeparation,
	"separation":           colSeparation,
}

// columnIndex maps known columns to their position; the first header wins on duplicates.
func columnIndex(headers []string) map[column]int {
	idx := make(map[column]int, len(columnAliases))
	for i, h := range headers {
		col, ok := columnAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func rowToMatch(idx map[column]int, cells []string) domain.GalaxyMatch {
	cell := func(c column) string {
		i, ok := idx[c]
		if !ok || i >= len(cells) {
			return ""
		}
		return cleanText(cells[i])
	}

	return domain.GalaxyMatch{
		Name:       cell(colName),
		RA:         parseOptionalFloat(cell(colRA)),
		Dec:        parseOptionalFloat(cell(colDec)),
		Type:       cell(colType),
		MagFilter:  cell(colMagFilter),
		Redshift:   parseOptionalFloat(cell(colRedshift)),
		Separation: parseOptionalFloat(cell(colSeparation)),
	}
}

func parseOptionalFloat(text string) *float64 {
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
