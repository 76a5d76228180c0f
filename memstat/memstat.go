// Package memstat reports the resident memory of the running process.
package memstat

const bytesPerMB = 1024 * 1024

// ResidentMB returns the process resident set size in mebibytes.
func ResidentMB() (float64, error) {
	b, err := residentBytes()
	if err != nil {
		return 0, err
	}
	return float64(b) / bytesPerMB, nil
}
