package ned

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"TNSDigest/internal/domain"
)

// VOTableDecoder reads NED's xml_main output (VOTable TABLEDATA serialization).
type VOTableDecoder struct{}

var _ Decoder = VOTableDecoder{}

// Name identifies the decoder inside the registry.
func (VOTableDecoder) Name() string { return "votable" }

// OutputFormat selects the VOTable flavour of the NED search.
func (VOTableDecoder) OutputFormat() string { return "xml_main" }

type voDocument struct {
	Infos     []voInfo     `xml:"INFO"`
	Resources []voResource `xml:"RESOURCE"`
}

type voResource struct {
	Infos  []voInfo  `xml:"INFO"`
	Tables []voTable `xml:"TABLE"`
}

type voInfo struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

type voTable struct {
	Fields []voField `xml:"FIELD"`
	Rows   []voRow   `xml:"DATA>TABLEDATA>TR"`
}

type voField struct {
	ID   string `xml:"ID,attr"`
	Name string `xml:"name,attr"`
}

type voRow struct {
	Cells []string `xml:"TD"`
}

// Decode parses the first table that carries an object name column.
// A QUERY_STATUS of ERROR is reported as an error; a document without a table yields no rows.
func (VOTableDecoder) Decode(raw []byte, _ string) ([]domain.GalaxyMatch, error) {
	switch declaredXMLEncoding(raw) {
	case "", "utf-8", "utf8":
		raw = legacyToUTF8(raw)
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	var doc voDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode votable: %w", err)
	}

	infos := doc.Infos
	for _, res := range doc.Resources {
		infos = append(infos, res.Infos...)
	}
	for _, info := range infos {
		if strings.EqualFold(info.Name, "QUERY_STATUS") && strings.EqualFold(info.Value, "ERROR") {
			return nil, fmt.Errorf("ned query error: %s", cleanText(info.Text))
		}
	}

	for _, res := range doc.Resources {
		for _, table := range res.Tables {
			headers := make([]string, len(table.Fields))
			for i, f := range table.Fields {
				headers[i] = f.Name
				if headers[i] == "" {
					headers[i] = f.ID
				}
			}
			idx := columnIndex(headers)
			if _, ok := idx[colName]; !ok {
				continue
			}

			matches := make([]domain.GalaxyMatch, 0, len(table.Rows))
			for _, row := range table.Rows {
				matches = append(matches, rowToMatch(idx, row.Cells))
			}
			return matches, nil
		}
	}

	return nil, nil
}
