package ned

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TNSDigest/internal/config"
	"TNSDigest/internal/domain"
)

const sampleVOTable = `<?xml version="1.0" encoding="UTF-8"?>
<VOTABLE version="1.1" xmlns="http://www.ivoa.net/xml/VOTable/v1.1">
  <INFO name="QUERY_STATUS" value="OK"/>
  <RESOURCE type="results">
    <TABLE name="NED_MainTable">
      <FIELD ID="main_col1" name="No." datatype="int"/>
      <FIELD ID="main_col2" name="Object Name" datatype="char" arraysize="*"/>
      <FIELD ID="main_col3" name="RA(deg)" datatype="double"/>
      <FIELD ID="main_col4" name="DEC(deg)" datatype="double"/>
      <FIELD ID="main_col5" name="Type" datatype="char" arraysize="*"/>
      <FIELD ID="main_col6" name="Velocity" datatype="double"/>
      <FIELD ID="main_col7" name="Redshift" datatype="double"/>
      <FIELD ID="main_col8" name="Redshift Flag" datatype="char" arraysize="*"/>
      <FIELD ID="main_col9" name="Magnitude and Filter" datatype="char" arraysize="*"/>
      <FIELD ID="main_col10" name="Distance (arcmin)" datatype="double"/>
      <DATA>
        <TABLEDATA>
          <TR><TD>1</TD><TD>WISEA J100000.11+200001.2</TD><TD>150.00046</TD><TD>20.00033</TD><TD>IrS</TD><TD/><TD/><TD/><TD/><TD>3.2</TD></TR>
          <TR><TD>2</TD><TD>NGC 3079</TD><TD>150.49083</TD><TD>55.67975</TD><TD>G</TD><TD>1116</TD><TD>0.003723</TD><TD/><TD>11.5g</TD><TD>0.8</TD></TR>
          <TR><TD>3</TD><TD>SDSS J100001.00+200010.0</TD><TD>150.00417</TD><TD>20.00278</TD><TD>G</TD><TD/><TD>0.1</TD><TD/><TD>19.8r</TD><TD>1.5</TD></TR>
        </TABLEDATA>
      </DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

func ptr(v float64) *float64 { return &v }

func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	u, err := buildSearchURL("https://ned.ipac.caltech.edu/cgi-bin/objsearch", 150.5, -20.25, 1, "xml_main")
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)

	assert.Equal(t, "ned.ipac.caltech.edu", parsed.Host)
	q := parsed.Query()
	assert.Equal(t, "Near Position Search", q.Get("search_type"))
	assert.Equal(t, "150.5d", q.Get("lon"))
	assert.Equal(t, "-20.25d", q.Get("lat"))
	assert.Equal(t, "1", q.Get("radius"))
	assert.Equal(t, "xml_main", q.Get("of"))
}

func TestNearestSelectsMinimumSeparation(t *testing.T) {
	t.Parallel()

	matches := []domain.GalaxyMatch{
		{Name: "far", Separation: ptr(3.2)},
		{Name: "near", Separation: ptr(0.8)},
		{Name: "mid", Separation: ptr(1.5)},
	}

	got, ok := Nearest(matches)
	require.True(t, ok)
	assert.Equal(t, "near", got.Name)
}

func TestNearestTiesKeepSourceOrder(t *testing.T) {
	t.Parallel()

	matches := []domain.GalaxyMatch{
		{Name: "unknown"},
		{Name: "first", Separation: ptr(0.5)},
		{Name: "second", Separation: ptr(0.5)},
	}

	got, ok := Nearest(matches)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)

	_, ok = Nearest([]domain.GalaxyMatch{{Name: "unknown"}})
	assert.False(t, ok)
	_, ok = Nearest(nil)
	assert.False(t, ok)
}

func TestVOTableDecode(t *testing.T) {
	t.Parallel()

	matches, err := VOTableDecoder{}.Decode([]byte(sampleVOTable), "text/xml")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	ngc := matches[1]
	assert.Equal(t, "NGC 3079", ngc.Name)
	assert.Equal(t, "G", ngc.Type)
	assert.Equal(t, "11.5g", ngc.MagFilter)
	require.NotNil(t, ngc.RA)
	assert.Equal(t, 150.49083, *ngc.RA)
	require.NotNil(t, ngc.Dec)
	assert.Equal(t, 55.67975, *ngc.Dec)
	require.NotNil(t, ngc.Redshift)
	assert.Equal(t, 0.003723, *ngc.Redshift)
	require.NotNil(t, ngc.Separation)
	assert.Equal(t, 0.8, *ngc.Separation)

	assert.Nil(t, matches[0].Redshift)
	assert.Empty(t, matches[0].MagFilter)
}

func TestVOTableDecodeLegacyEncodings(t *testing.T) {
	t.Parallel()

	body := func(decl string) []byte {
		return []byte(decl + `<VOTABLE><RESOURCE><TABLE>
<FIELD name="Object Name"/><FIELD name="Type"/><FIELD name="Distance (arcmin)"/>
<DATA><TABLEDATA><TR><TD>Caf` + "\xe9" + ` Galaxy</TD><TD>G</TD><TD>0.4</TD></TR></TABLEDATA></DATA>
</TABLE></RESOURCE></VOTABLE>`)
	}

	for name, decl := range map[string]string{
		"declared latin-1": `<?xml version="1.0" encoding="ISO-8859-1"?>`,
		"undeclared":       ``,
		"mislabelled utf8": `<?xml version="1.0" encoding="UTF-8"?>`,
	} {
		matches, err := VOTableDecoder{}.Decode(body(decl), "")
		require.NoError(t, err, name)
		require.Len(t, matches, 1, name)
		assert.Equal(t, "Café Galaxy", matches[0].Name, name)
	}
}

func TestVOTableDecodeQueryError(t *testing.T) {
	t.Parallel()

	raw := `<VOTABLE><INFO name="QUERY_STATUS" value="ERROR">Unable to parse position</INFO></VOTABLE>`
	_, err := VOTableDecoder{}.Decode([]byte(raw), "")
	assert.ErrorContains(t, err, "Unable to parse position")
}

func TestVOTableDecodeNoTable(t *testing.T) {
	t.Parallel()

	matches, err := VOTableDecoder{}.Decode([]byte(`<VOTABLE><RESOURCE/></VOTABLE>`), "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestHTMLDecode(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	<table><tr><td>navigation</td></tr></table>
	<table>
	  <tr><th>No.</th><th>Object Name</th><th>RA</th><th>Dec</th><th>Type</th><th>Redshift</th><th>Magnitude and Filter</th><th>Separation</th></tr>
	  <tr><td>1</td><td> UGC 05460 </td><td>151.1</td><td>51.2</td><td>G</td><td>0.0036</td><td>14.3g</td><td>0.95</td></tr>
	  <tr><td>2</td><td>Caf` + "\xe9" + `</td><td>151.2</td><td>51.3</td><td>G</td><td></td><td></td><td>0.40</td></tr>
	</table></body></html>`

	matches, err := HTMLDecoder{}.Decode([]byte(page), "text/html; charset=ISO-8859-1")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "UGC 05460", matches[0].Name)
	require.NotNil(t, matches[0].Redshift)
	assert.Equal(t, 0.0036, *matches[0].Redshift)
	assert.Equal(t, "14.3g", matches[0].MagFilter)
	assert.Equal(t, "Café", matches[1].Name)
	assert.Nil(t, matches[1].Redshift)

	nearest, ok := Nearest(matches)
	require.True(t, ok)
	assert.Equal(t, "Café", nearest.Name)
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	d, err := r.Resolve("votable")
	require.NoError(t, err)
	assert.Equal(t, "xml_main", d.OutputFormat())

	_, err = r.Resolve("fits")
	assert.Error(t, err)

	_, err = NewClient(config.NEDConfig{BaseURL: "http://x", Format: "fits"}, r, nil)
	assert.Error(t, err)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.NEDConfig{BaseURL: baseURL, Format: "votable"}, nil, nil)
	require.NoError(t, err)
	return client
}

func TestClientQueryNearby(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(sampleVOTable))
	}))
	defer server.Close()

	lookup := newTestClient(t, server.URL).QueryNearby(context.Background(), 150.0, 20.0, 1.0)
	require.Equal(t, domain.LookupFound, lookup.Status)
	assert.NoError(t, lookup.Err)
	assert.Equal(t, "NGC 3079", lookup.Match.Name)
	assert.Equal(t, "150d", gotQuery.Get("lon"))
	assert.Equal(t, "20d", gotQuery.Get("lat"))
}

func TestClientQueryNearbyAbsorbsFailures(t *testing.T) {
	t.Parallel()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	lookup := newTestClient(t, failing.URL).QueryNearby(context.Background(), 1, 2, 1)
	assert.Equal(t, domain.LookupFailed, lookup.Status)
	assert.ErrorIs(t, lookup.Err, domain.ErrRemote)
	assert.True(t, lookup.Match.IsZero())

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<VOTABLE><unterminated"))
	}))
	defer garbage.Close()

	lookup = newTestClient(t, garbage.URL).QueryNearby(context.Background(), 1, 2, 1)
	assert.Equal(t, domain.LookupFailed, lookup.Status)
	assert.ErrorIs(t, lookup.Err, domain.ErrInvalidReply)

	unreachable := newTestClient(t, "http://127.0.0.1:1/objsearch")
	lookup = unreachable.QueryNearby(context.Background(), 1, 2, 1)
	assert.Equal(t, domain.LookupFailed, lookup.Status)
}

func TestClientQueryNearbyEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<VOTABLE><RESOURCE><TABLE><FIELD name="Object Name"/><FIELD name="Distance (arcmin)"/><DATA><TABLEDATA/></DATA></TABLE></RESOURCE></VOTABLE>`))
	}))
	defer server.Close()

	lookup := newTestClient(t, server.URL).QueryNearby(context.Background(), 1, 2, 1)
	assert.Equal(t, domain.LookupEmpty, lookup.Status)
	assert.NoError(t, lookup.Err)
	assert.True(t, lookup.Match.IsZero())
}
