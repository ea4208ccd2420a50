package domain

// InvalidReading is the GOES sentinel for "no valid reading".
const InvalidReading = -99999.0

// Dataset names used in logs, metrics and cache manifests.
const (
	DatasetMagnetometer = "magnetometer"
	DatasetQuake        = "quake"
)

// Column names of cleaned tables.
const (
	ColumnHP        = "hp"
	ColumnHE        = "he"
	ColumnHN        = "hn"
	ColumnHT        = "ht"
	ColumnMagnitude = "mag"
)

// MagnetometerColumns lists the channel columns in output order.
var MagnetometerColumns = []string{ColumnHP, ColumnHE, ColumnHN, ColumnHT}

// QuakeColumns lists the catalog value columns.
var QuakeColumns = []string{ColumnMagnitude}

// MagRecord is one row of a GOES magnetometer file body.
type MagRecord struct {
	TimeTag string
	HP      float64
	HE      float64
	HN      float64
	HT      float64
}

// QuakeRecord is one row of the earthquake catalog. Only the year is required
// to parse; the other date fields are NaN when the catalog leaves them blank
// and are validated during cleaning, after the cutoff filter.
type QuakeRecord struct {
	Year      int
	Month     float64
	Day       float64
	Hour      float64
	Minute    float64
	Second    float64
	Magnitude float64
}

// CleanStats summarizes a cleaning pass.
type CleanStats struct {
	Input   int
	Kept    int
	Dropped int
}
