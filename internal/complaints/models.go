package complaints

import "time"

// Neighborhood is a durable NTA (Neighborhood Tabulation Area). Rows are
// created lazily the first time a name shows up in enriched data and are
// never deleted or renamed; name is the natural key.
type Neighborhood struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:100;uniqueIndex" json:"name"`
	Borough string `gorm:"size:100" json:"borough"`
}

// Complaint is one NYPD complaint row as persisted. Everything except the
// complaint number is optional: the feed leaves fields blank routinely, and
// a blank field must not block the row.
type Complaint struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	CmplntNum        string     `json:"cmplnt_num"`
	AddrPctCd        *int       `json:"addr_pct_cd"`
	BoroNm           string     `json:"boro_nm"`
	CmplntFrDt       *time.Time `gorm:"type:date" json:"cmplnt_fr_dt"`
	CmplntFrTm       string     `json:"cmplnt_fr_tm"`
	CmplntToDt       *time.Time `gorm:"type:date" json:"cmplnt_to_dt"`
	CmplntToTm       string     `json:"cmplnt_to_tm"`
	CrmAtptCptdCd    string     `json:"crm_atpt_cptd_cd"`
	Hadevelopt       string     `json:"hadevelopt"`
	HousingPsa       *int       `json:"housing_psa"`
	JurisdictionCode *int       `json:"jurisdiction_code"`
	JurisDesc        string     `json:"juris_desc"`
	KyCd             *int       `json:"ky_cd"`
	LawCatCd         string     `json:"law_cat_cd"`
	LocOfOccurDesc   string     `json:"loc_of_occur_desc"`
	OfnsDesc         string     `json:"ofns_desc"`
	ParksNm          string     `json:"parks_nm"`
	PatrolBoro       string     `json:"patrol_boro"`
	PdCd             *int       `json:"pd_cd"`
	PdDesc           string     `json:"pd_desc"`
	PremTypDesc      string     `json:"prem_typ_desc"`
	RptDt            *time.Time `json:"rpt_dt"`
	StationName      string     `json:"station_name"`
	SuspAgeGroup     string     `json:"susp_age_group"`
	SuspRace         string     `json:"susp_race"`
	SuspSex          string     `json:"susp_sex"`
	TransitDistrict  *int       `json:"transit_district"`
	VicAgeGroup      string     `json:"vic_age_group"`
	VicRace          string     `json:"vic_race"`
	VicSex           string     `json:"vic_sex"`
	XCoordCd         *int       `json:"x_coord_cd"`
	YCoordCd         *int       `json:"y_coord_cd"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	LatLon           string     `gorm:"size:100" json:"lat_lon"`
	GeocodedColumn   string     `json:"geocoded_column"`

	NeighborhoodID *uint         `json:"neighborhood_id"`
	Neighborhood   *Neighborhood `gorm:"foreignKey:NeighborhoodID" json:"neighborhood,omitempty"`
}

func (Neighborhood) TableName() string {
	return "neighborhoods"
}

func (Complaint) TableName() string {
	return "complaints"
}
