package ingest

import (
	"math"
	"strconv"
	"time"
)

// feedDateLayout is the fixed month/day/year format the feed emits.
const feedDateLayout = "01/02/2006"

// CanonicalRecord is the typed form of one feed row. Every field is optional
// except CmplntNum; coercion failures land as nil, never as errors.
type CanonicalRecord struct {
	CmplntNum        string
	AddrPctCd        *int
	BoroNm           string
	CmplntFrDt       *time.Time
	CmplntFrTm       string
	CmplntToDt       *time.Time
	CmplntToTm       string
	CrmAtptCptdCd    string
	Hadevelopt       string
	HousingPsa       *int
	JurisdictionCode *int
	JurisDesc        string
	KyCd             *int
	LawCatCd         string
	LocOfOccurDesc   string
	OfnsDesc         string
	ParksNm          string
	PatrolBoro       string
	PdCd             *int
	PdDesc           string
	PremTypDesc      string
	RptDt            *time.Time
	StationName      string
	SuspAgeGroup     string
	SuspRace         string
	SuspSex          string
	TransitDistrict  *int
	VicAgeGroup      string
	VicRace          string
	VicSex           string
	XCoordCd         *int
	YCoordCd         *int
	Latitude         *float64
	Longitude        *float64
	LatLon           string
	GeocodedColumn   string
}

// Normalize converts a raw feed row into its canonical typed form. Total:
// any input produces a record, malformed fields just come back absent.
func Normalize(raw RawRecord) CanonicalRecord {
	return CanonicalRecord{
		CmplntNum:        raw["CMPLNT_NUM"],
		AddrPctCd:        safeInt(raw["ADDR_PCT_CD"]),
		BoroNm:           raw["BORO_NM"],
		CmplntFrDt:       parseDate(raw["CMPLNT_FR_DT"]),
		CmplntFrTm:       raw["CMPLNT_FR_TM"],
		CmplntToDt:       parseDate(raw["CMPLNT_TO_DT"]),
		CmplntToTm:       raw["CMPLNT_TO_TM"],
		CrmAtptCptdCd:    raw["CRM_ATPT_CPTD_CD"],
		Hadevelopt:       raw["HADEVELOPT"],
		HousingPsa:       safeInt(raw["HOUSING_PSA"]),
		JurisdictionCode: safeInt(raw["JURISDICTION_CODE"]),
		JurisDesc:        raw["JURIS_DESC"],
		KyCd:             safeInt(raw["KY_CD"]),
		LawCatCd:         raw["LAW_CAT_CD"],
		LocOfOccurDesc:   raw["LOC_OF_OCCUR_DESC"],
		OfnsDesc:         raw["OFNS_DESC"],
		ParksNm:          raw["PARKS_NM"],
		PatrolBoro:       raw["PATROL_BORO"],
		PdCd:             safeInt(raw["PD_CD"]),
		PdDesc:           raw["PD_DESC"],
		PremTypDesc:      raw["PREM_TYP_DESC"],
		RptDt:            parseDate(raw["RPT_DT"]),
		StationName:      raw["STATION_NAME"],
		SuspAgeGroup:     raw["SUSP_AGE_GROUP"],
		SuspRace:         raw["SUSP_RACE"],
		SuspSex:          raw["SUSP_SEX"],
		TransitDistrict:  safeInt(raw["TRANSIT_DISTRICT"]),
		VicAgeGroup:      raw["VIC_AGE_GROUP"],
		VicRace:          raw["VIC_RACE"],
		VicSex:           raw["VIC_SEX"],
		XCoordCd:         safeInt(raw["X_COORD_CD"]),
		YCoordCd:         safeInt(raw["Y_COORD_CD"]),
		Latitude:         safeFloat(raw["Latitude"]),
		Longitude:        safeFloat(raw["Longitude"]),
		LatLon:           raw["Lat_Lon"],
		GeocodedColumn:   raw["New Georeferenced Column"],
	}
}

// safeInt parses through float first because the feed emits integers as
// "3.0". Empty, "NaN", and garbage all come back nil.
func safeInt(s string) *int {
	if s == "" || s == "NaN" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func safeFloat(s string) *float64 {
	if s == "" || s == "NaN" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(feedDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
