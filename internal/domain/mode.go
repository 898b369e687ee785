package domain

import (
	"encoding/json"
	"strings"
)

// TransitMode is the vehicle type of a transit route. It mirrors the GTFS
// route type set. Mode is presentation metadata only: an unrecognized or
// absent mode decodes to ModeUnknown rather than failing the route.
type TransitMode int

const (
	ModeUnknown TransitMode = iota
	ModeLightRail
	ModeSubway
	ModeRail
	ModeBus
	ModeFerry
	ModeCableCar
	ModeGondola
	ModeFunicular
	ModeTrolleybus
	ModeMonorail
)

var modeNames = map[TransitMode]string{
	ModeUnknown:    "Unknown",
	ModeLightRail:  "LightRail",
	ModeSubway:     "Subway",
	ModeRail:       "Rail",
	ModeBus:        "Bus",
	ModeFerry:      "Ferry",
	ModeCableCar:   "CableCar",
	ModeGondola:    "Gondola",
	ModeFunicular:  "Funicular",
	ModeTrolleybus: "Trolleybus",
	ModeMonorail:   "Monorail",
}

func (m TransitMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return modeNames[ModeUnknown]
}

func (m TransitMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *TransitMode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		// Not a string: tolerate and fall back to unknown.
		*m = ModeUnknown
		return nil
	}
	*m = ParseTransitMode(name)
	return nil
}

// ParseTransitMode matches mode names case-insensitively, ignoring dash and
// underscore separators ("light_rail", "LightRail" and "light-rail" all
// parse to ModeLightRail).
func ParseTransitMode(name string) TransitMode {
	norm := strings.ToLower(name)
	norm = strings.ReplaceAll(norm, "_", "")
	norm = strings.ReplaceAll(norm, "-", "")

	for mode, modeName := range modeNames {
		if strings.ToLower(modeName) == norm {
			return mode
		}
	}
	return ModeUnknown
}
