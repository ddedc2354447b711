package configs

import (
	"fmt"

	"github.com/CK6170/Spectro-go/models"
)

// ParametersSchema constrains spectro.cue. Unknown keys are errors.
const ParametersSchema = `
SERIAL?: close({
	PORT?:     string
	BAUDRATE?: int & >0
})
LISTEN?:      string
MONITOR?:     string
RESULTS?:     string
PRESSURE_MS?: int & >0
PEAKFIT?: close({
	COMMAND?:    [...string]
	DIR?:        string
	TIMEOUT_MS?: int & >=0
})
CALIBRATION?: close({
	START?:  number
	STEP?:   number & >0
	POINTS?: int & >0
})
DEFAULTS?: close({
	NUM_SCANS?:          int & >=1
	TIME_BETWEEN_SCANS?: int & >=0
	INTEGRATION_TIME?:   int & >0
	BOXCAR_WIDTH?:       int & >=0 & <=16
	AVG_PER_SCAN?:       int & >=1
	DOCTOR?:             string
	PATIENT?:            string
	EXPERIMENT_ID?:      string
})
DEBUG?: bool
`

// LoadParameters reads the config files and fills in defaults. With no
// files the defaults alone are returned.
func LoadParameters(paths ...string) (*models.PARAMETERS, error) {
	p := &models.PARAMETERS{}
	if len(paths) > 0 {
		// DEFAULTS given partially still start from the power-on values
		d := models.DefaultSettings()
		p.DEFAULTS = &d
		if err := NewLoader(paths, ParametersSchema).Decode(p); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	p.Normalize()
	if err := p.DEFAULTS.Validate(); err != nil {
		return nil, fmt.Errorf("config DEFAULTS: %w", err)
	}
	return p, nil
}
