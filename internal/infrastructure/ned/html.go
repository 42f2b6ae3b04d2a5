package ned

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"TNSDigest/internal/domain"
)

// HTMLDecoder reads NED's HTML result page: the first table whose header row names an object column.
type HTMLDecoder struct{}

var _ Decoder = HTMLDecoder{}

// Name identifies the decoder inside the registry.
func (HTMLDecoder) Name() string { return "html" }

// OutputFormat selects the HTML flavour of the NED search.
func (HTMLDecoder) OutputFormat() string { return "html" }

// Decode transcodes the page per its declared charset and extracts rows in page order.
func (HTMLDecoder) Decode(raw []byte, contentType string) ([]domain.GalaxyMatch, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var (
		matches []domain.GalaxyMatch
		found   bool
	)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		headers := cellTexts(rows.First().Find("th, td"))
		idx := columnIndex(headers)
		if _, ok := idx[colName]; !ok {
			return true
		}

		found = true
		rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := cellTexts(tr.Find("td"))
			if len(cells) == 0 {
				return
			}
			matches = append(matches, rowToMatch(idx, cells))
		})
		return false
	})

	if !found {
		return nil, nil
	}
	return matches, nil
}

func cellTexts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}
