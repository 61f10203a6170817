package report

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/consentio/gdprscan/util"
)

// LoadSites reads the bulk site list: a headerless CSV whose last column
// is the website URL (the first column is a row index when present). Bare
// domains are normalized to https:// URLs.
func LoadSites(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open site list %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse site list %s", path)
	}

	var sites []string
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		site := strings.TrimSpace(record[len(record)-1])
		if site == "" {
			continue
		}
		sites = append(sites, util.NormalizeSiteURL(site))
	}

	if len(sites) == 0 {
		return nil, errors.Errorf("site list %s contains no sites", path)
	}

	return sites, nil
}
