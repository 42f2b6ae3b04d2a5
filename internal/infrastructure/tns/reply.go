package tns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"TNSDigest/internal/domain"
)

type envelope struct {
	IDCode    int    `json:"id_code"`
	IDMessage string `json:"id_message"`
	Data      struct {
		Reply json.RawMessage `json:"reply"`
	} `json:"data"`
}

type searchEntry struct {
	Objname string `json:"objname"`
}

type filterRef struct {
	Family string `json:"family"`
	Name   string `json:"name"`
}

type typeRef struct {
	Name string `json:"name"`
}

type groupRef struct {
	GroupName string `json:"group_name"`
}

type objectReply struct {
	Objname             string     `json:"objname"`
	NamePrefix          string     `json:"name_prefix"`
	RA                  string     `json:"ra"`
	Dec                 string     `json:"dec"`
	RADeg               flexFloat  `json:"radeg"`
	DecDeg              flexFloat  `json:"decdeg"`
	DiscoveryDate       string     `json:"discoverydate"`
	DiscoveryMag        flexFloat  `json:"discoverymag"`
	DiscMagFilter       *filterRef `json:"discmagfilter"`
	ObjectType          *typeRef   `json:"object_type"`
	ReportingGroup      *groupRef  `json:"reporting_group"`
	DiscoveryDataSource *groupRef  `json:"discovery_data_source"`
	InternalNames       string     `json:"internal_names"`
}

func (r objectReply) toRecord() (domain.DiscoveryRecord, error) {
	if strings.TrimSpace(r.Objname) == "" {
		return domain.DiscoveryRecord{}, fmt.Errorf("%w: object reply without objname", domain.ErrInvalidReply)
	}
	if r.RADeg.Value == nil || r.DecDeg.Value == nil {
		return domain.DiscoveryRecord{}, fmt.Errorf("%w: object %s has no position", domain.ErrInvalidReply, r.Objname)
	}

	record := domain.DiscoveryRecord{
		Name:           r.Objname,
		Prefix:         r.NamePrefix,
		RA:             *r.RADeg.Value,
		Dec:            *r.DecDeg.Value,
		RASexagesimal:  r.RA,
		DecSexagesimal: r.Dec,
		DiscoveryDate:  r.DiscoveryDate,
		DiscoveryMag:   r.DiscoveryMag.Value,
		InternalNames:  r.InternalNames,
	}

	if f := r.DiscMagFilter; f != nil && (f.Family != "" || f.Name != "") {
		record.DiscoveryFilter = f.Family + "-" + f.Name
	}
	if r.ObjectType != nil {
		record.ObjectType = r.ObjectType.Name
	}
	if r.ReportingGroup != nil {
		record.ReportingGroup = r.ReportingGroup.GroupName
	}
	if r.DiscoveryDataSource != nil {
		record.DiscoveryDataSource = r.DiscoveryDataSource.GroupName
	}

	return record, nil
}

// flexFloat accepts a JSON number, a numeric string, an empty string, or null.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		f.Value = nil
		return nil
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			f.Value = nil
			return nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", text, err)
	}
	f.Value = &v
	return nil
}
