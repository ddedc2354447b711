package models

// SERIAL describes the tty carrying the client command channel. With an RFCOMM
// binding this is usually /dev/rfcomm0; an empty PORT triggers auto-detection.
type SERIAL struct {
	PORT     string `json:"PORT"`
	BAUDRATE int    `json:"BAUDRATE"`
}

type PEAKFIT struct {
	// COMMAND is the external fit tool, e.g. ["python3", "PeakDetector.py"].
	// When empty the in-process gaussian fitter is used.
	COMMAND   []string `json:"COMMAND"`
	DIR       string   `json:"DIR"`
	TIMEOUTMS int      `json:"TIMEOUT_MS"`
}

// CALIBRATION is the linear wavelength table used by the simulated spectrometer.
type CALIBRATION struct {
	START  float64 `json:"START"`
	STEP   float64 `json:"STEP"`
	POINTS int     `json:"POINTS"`
}

type PARAMETERS struct {
	SERIAL      *SERIAL      `json:"SERIAL"`
	LISTEN      string       `json:"LISTEN"`
	MONITOR     string       `json:"MONITOR"`
	RESULTS     string       `json:"RESULTS"`
	PRESSUREMS  int          `json:"PRESSURE_MS"`
	PEAKFIT     *PEAKFIT     `json:"PEAKFIT"`
	CALIBRATION *CALIBRATION `json:"CALIBRATION"`
	DEFAULTS    *Settings    `json:"DEFAULTS"`
	DEBUG       bool         `json:"DEBUG"`
}

const (
	DefaultResultsDir = "./experiment_results"
	DefaultPressureMS = 750
	DefaultBaudRate   = 115200
	NumWavelengths    = 1024
)

// Normalize fills in zero values with the instrument defaults.
func (p *PARAMETERS) Normalize() {
	if p.SERIAL == nil {
		p.SERIAL = &SERIAL{}
	}
	if p.SERIAL.BAUDRATE <= 0 {
		p.SERIAL.BAUDRATE = DefaultBaudRate
	}
	if p.RESULTS == "" {
		p.RESULTS = DefaultResultsDir
	}
	if p.PRESSUREMS <= 0 {
		p.PRESSUREMS = DefaultPressureMS
	}
	if p.PEAKFIT == nil {
		p.PEAKFIT = &PEAKFIT{}
	}
	if p.CALIBRATION == nil {
		p.CALIBRATION = &CALIBRATION{}
	}
	if p.CALIBRATION.POINTS <= 0 {
		p.CALIBRATION.POINTS = NumWavelengths
	}
	if p.CALIBRATION.START == 0 {
		p.CALIBRATION.START = 339.5
	}
	if p.CALIBRATION.STEP == 0 {
		p.CALIBRATION.STEP = 0.5
	}
	if p.DEFAULTS == nil {
		d := DefaultSettings()
		p.DEFAULTS = &d
	}
}
