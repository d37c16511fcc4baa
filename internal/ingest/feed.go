package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// RawRecord is one feed row keyed by exact (case-sensitive) column header.
// Missing columns read as "".
type RawRecord map[string]string

// feedColumns is the NYPD Year-To-Date export schema, in file order. The
// snapshot file reuses this order so rows compare stably across runs.
var feedColumns = []string{
	"CMPLNT_NUM",
	"ADDR_PCT_CD",
	"BORO_NM",
	"CMPLNT_FR_DT",
	"CMPLNT_FR_TM",
	"CMPLNT_TO_DT",
	"CMPLNT_TO_TM",
	"CRM_ATPT_CPTD_CD",
	"HADEVELOPT",
	"HOUSING_PSA",
	"JURISDICTION_CODE",
	"JURIS_DESC",
	"KY_CD",
	"LAW_CAT_CD",
	"LOC_OF_OCCUR_DESC",
	"OFNS_DESC",
	"PARKS_NM",
	"PATROL_BORO",
	"PD_CD",
	"PD_DESC",
	"PREM_TYP_DESC",
	"RPT_DT",
	"STATION_NAME",
	"SUSP_AGE_GROUP",
	"SUSP_RACE",
	"SUSP_SEX",
	"TRANSIT_DISTRICT",
	"VIC_AGE_GROUP",
	"VIC_RACE",
	"VIC_SEX",
	"X_COORD_CD",
	"Y_COORD_CD",
	"Latitude",
	"Longitude",
	"Lat_Lon",
	"New Georeferenced Column",
}

// DownloadFeed fetches the feed CSV to destPath. No internal retry: a
// transport failure aborts the run and the external scheduler retries.
func DownloadFeed(ctx context.Context, client *http.Client, url, destPath string) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create feed file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write feed file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close feed file: %w", err)
	}

	return nil
}

// ReadFeed parses feed CSV rows into RawRecords using the file's own header.
// Short rows are padded with empty fields rather than rejected.
func ReadFeed(r io.Reader) ([]RawRecord, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse feed csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("feed csv has no header")
	}

	header := records[0]
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([]RawRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(RawRecord, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ReadFeedFile is ReadFeed over a file on disk.
func ReadFeedFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()
	return ReadFeed(f)
}
