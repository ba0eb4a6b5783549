package ledmatrix

import "fmt"

const (
	// MaxPWMBits is the deepest bit-plane count a panel can be driven with
	MaxPWMBits = 11
	// DefaultCols is the width of one module in every supported mapping
	DefaultCols = 32
)

// HardwareMapping names the GPIO wiring between the Pi and the panel chain
type HardwareMapping string

const (
	MappingRegular        HardwareMapping = "regular"
	MappingRegularPi1     HardwareMapping = "regular-pi1"
	MappingAdafruitHat    HardwareMapping = "adafruit-hat"
	MappingAdafruitHatPWM HardwareMapping = "adafruit-hat-pwm"
)

// Pinout holds the BCM GPIO numbers of a HUB75 connection. E is -1 when
// the mapping has no fifth address line.
type Pinout struct {
	R1, G1, B1 int // Color data for the upper half
	R2, G2, B2 int // Color data for the lower half
	A, B, C, D int // Row address
	E          int
	CLK        int // Clock
	LAT        int // Latch (strobe)
	OE         int // Output enable, active low
}

var pinouts = map[HardwareMapping]Pinout{
	MappingRegular: {
		R1: 11, G1: 27, B1: 7,
		R2: 8, G2: 9, B2: 10,
		A: 22, B: 23, C: 24, D: 25, E: 15,
		CLK: 17, LAT: 4, OE: 18,
	},
	MappingRegularPi1: {
		R1: 11, G1: 21, B1: 7,
		R2: 8, G2: 9, B2: 10,
		A: 22, B: 23, C: 24, D: 25, E: -1,
		CLK: 17, LAT: 4, OE: 18,
	},
	// Adafruit RGB Matrix Bonnet / HAT
	MappingAdafruitHat: {
		R1: 5, G1: 13, B1: 6,
		R2: 12, G2: 16, B2: 23,
		A: 22, B: 26, C: 27, D: 20, E: 24,
		CLK: 17, LAT: 21, OE: 4,
	},
	// Adafruit HAT with the GPIO4-GPIO18 jumper soldered for hardware PWM on OE
	MappingAdafruitHatPWM: {
		R1: 5, G1: 13, B1: 6,
		R2: 12, G2: 16, B2: 23,
		A: 22, B: 26, C: 27, D: 20, E: 24,
		CLK: 17, LAT: 21, OE: 18,
	},
}

// Pinout returns the GPIO assignment of the mapping
func (m HardwareMapping) Pinout() (Pinout, bool) {
	p, ok := pinouts[m]
	return p, ok
}

// Mappings lists the supported hardware mappings
func Mappings() []HardwareMapping {
	return []HardwareMapping{MappingRegular, MappingRegularPi1, MappingAdafruitHat, MappingAdafruitHatPWM}
}

// AddressLines returns how many row address lines are wired
func (p Pinout) AddressLines() int {
	if p.E < 0 {
		return 4
	}
	return 5
}

// PanelConfig is the hardware configuration of a panel chain
type PanelConfig struct {
	HardwareMapping   HardwareMapping `yaml:"hardware_mapping"`
	Rows              int             `yaml:"rows"`
	Cols              int             `yaml:"cols"`
	ChainLength       int             `yaml:"chain_length"`
	PWMBits           int             `yaml:"pwm_bits"`
	PWMLSBNanoseconds int             `yaml:"pwm_lsb_nanoseconds"`
	GPIOSlowdown      int             `yaml:"gpio_slowdown"`
	Brightness        int             `yaml:"brightness"`
}

// DefaultPanelConfig returns the configuration of the sign: four 32x32
// modules on an Adafruit HAT
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		HardwareMapping:   MappingAdafruitHat,
		Rows:              32,
		Cols:              DefaultCols,
		ChainLength:       4,
		PWMBits:           3,
		PWMLSBNanoseconds: 300,
		GPIOSlowdown:      2,
		Brightness:        100,
	}
}

// Validate checks every field and returns a *ConfigError for the first
// invalid one
func (c PanelConfig) Validate() error {
	if _, ok := c.HardwareMapping.Pinout(); !ok {
		return &ConfigError{Field: "hardware_mapping", Value: c.HardwareMapping,
			Reason: fmt.Sprintf("must be one of %v", Mappings())}
	}
	if c.Rows <= 0 {
		return &ConfigError{Field: "rows", Value: c.Rows, Reason: "must be positive"}
	}
	if c.Cols <= 0 {
		return &ConfigError{Field: "cols", Value: c.Cols, Reason: "must be positive"}
	}
	if c.ChainLength <= 0 {
		return &ConfigError{Field: "chain_length", Value: c.ChainLength, Reason: "must be positive"}
	}
	if c.PWMBits < 1 || c.PWMBits > MaxPWMBits {
		return &ConfigError{Field: "pwm_bits", Value: c.PWMBits,
			Reason: fmt.Sprintf("must be between 1 and %d", MaxPWMBits)}
	}
	if c.PWMLSBNanoseconds <= 0 {
		return &ConfigError{Field: "pwm_lsb_nanoseconds", Value: c.PWMLSBNanoseconds, Reason: "must be positive"}
	}
	if c.GPIOSlowdown < 0 {
		return &ConfigError{Field: "gpio_slowdown", Value: c.GPIOSlowdown, Reason: "must not be negative"}
	}
	if c.Brightness < 1 || c.Brightness > 100 {
		return &ConfigError{Field: "brightness", Value: c.Brightness, Reason: "must be between 1 and 100"}
	}
	return nil
}

// Width is the canvas width: one module width per chained panel
func (c PanelConfig) Width() int {
	return c.Cols * c.ChainLength
}

// Height is the canvas height
func (c PanelConfig) Height() int {
	return c.Rows
}
