package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the content schema of a feed. Its value is the feed key
// prefix used on the wire (the part of the key before the first dash).
type Kind string

const (
	KindTransit    Kind = "gtfs"
	KindBikeshare  Kind = "gbfs"
	KindWeather    Kind = "weather"
	KindAirQuality Kind = "aqi"
	KindEphemeris  Kind = "ephem"
	KindCalendar   Kind = "cal"
	KindTidal      Kind = "tidal"
	KindCronos     Kind = "cronos"
	KindGitlab     Kind = "gitlab"
	KindPackages   Kind = "pkg"
	KindConst      Kind = "const"
)

// opaqueKinds have no enforced schema; their payload is stored verbatim.
var opaqueKinds = map[Kind]bool{
	KindCronos:   true,
	KindGitlab:   true,
	KindPackages: true,
	KindConst:    true,
}

var knownKinds = map[Kind]bool{
	KindTransit:    true,
	KindBikeshare:  true,
	KindWeather:    true,
	KindAirQuality: true,
	KindEphemeris:  true,
	KindCalendar:   true,
	KindTidal:      true,
	KindCronos:     true,
	KindGitlab:     true,
	KindPackages:   true,
	KindConst:      true,
}

// KindForKey returns the content kind named by a feed key's prefix.
// Keys without a dash or with an unrecognized prefix are not decodable.
func KindForKey(key string) (Kind, bool) {
	idx := strings.IndexByte(key, '-')
	if idx <= 0 {
		return "", false
	}
	k := Kind(key[:idx])
	if !knownKinds[k] {
		return "", false
	}
	return k, true
}

// IsOpaque reports whether the kind carries raw passthrough data.
func (k Kind) IsOpaque() bool {
	return opaqueKinds[k]
}

// Content is the closed union of decoded feed payloads. Exactly the types in
// this package implement it.
type Content interface {
	Kind() Kind
}

// Transit is an ordered list of transit route arrival snapshots.
type Transit []TransitRoute

// Bikeshare is an ordered list of bikeshare station snapshots.
type Bikeshare []BikeStation

// Weather is an ordered list of weather reports.
type Weather []WeatherReport

// Calendar is an ordered list of upcoming calendar events.
type Calendar []CalendarEvent

// AirQuality is an ordered list of air quality reports.
type AirQuality []AirQualityReport

// Tidal is an ordered list of tide reports.
type Tidal []TideReport

// Ephemeris is an ordered list of ephemeris reports.
type Ephemeris []EphemerisReport

func (Transit) Kind() Kind    { return KindTransit }
func (Bikeshare) Kind() Kind  { return KindBikeshare }
func (Weather) Kind() Kind    { return KindWeather }
func (Calendar) Kind() Kind   { return KindCalendar }
func (AirQuality) Kind() Kind { return KindAirQuality }
func (Tidal) Kind() Kind      { return KindTidal }
func (Ephemeris) Kind() Kind  { return KindEphemeris }

// Opaque carries the verbatim payload of a feed whose schema the engine does
// not model. Tag records which of the passthrough kinds it belongs to.
type Opaque struct {
	Tag   Kind
	Value json.RawMessage
}

func (o Opaque) Kind() Kind { return o.Tag }

// MarshalJSON emits the raw payload unchanged.
func (o Opaque) MarshalJSON() ([]byte, error) {
	if len(o.Value) == 0 {
		return []byte("null"), nil
	}
	return o.Value, nil
}

// UnmarshalContent decodes a payload into the content type for kind. It is
// the inverse of marshaling a Content value and is used both by the wire
// decoder and by snapshot restore.
func UnmarshalContent(kind Kind, data []byte) (Content, error) {
	if kind.IsOpaque() {
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Opaque{Tag: kind, Value: raw}, nil
	}

	switch kind {
	case KindTransit:
		items, err := decodeSeq[TransitRoute](data)
		if err != nil {
			return nil, err
		}
		return Transit(items), nil
	case KindBikeshare:
		items, err := decodeSeq[BikeStation](data)
		if err != nil {
			return nil, err
		}
		return Bikeshare(items), nil
	case KindWeather:
		items, err := decodeSeq[WeatherReport](data)
		if err != nil {
			return nil, err
		}
		return Weather(items), nil
	case KindCalendar:
		items, err := decodeSeq[CalendarEvent](data)
		if err != nil {
			return nil, err
		}
		return Calendar(items), nil
	case KindAirQuality:
		items, err := decodeSeq[AirQualityReport](data)
		if err != nil {
			return nil, err
		}
		return AirQuality(items), nil
	case KindTidal:
		items, err := decodeSeq[TideReport](data)
		if err != nil {
			return nil, err
		}
		return Tidal(items), nil
	case KindEphemeris:
		items, err := decodeSeq[EphemerisReport](data)
		if err != nil {
			return nil, err
		}
		return Ephemeris(items), nil
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

// decodeSeq decodes a JSON array of T. A bare object decodes as a
// one-element sequence: some publishers send a single report unwrapped.
func decodeSeq[T any](data []byte) ([]T, error) {
	var list []T
	listErr := json.Unmarshal(data, &list)
	if listErr == nil {
		return list, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, listErr
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// The typed schemas decode through staging structs with pointer fields so a
// missing required field fails the decode instead of zero-filling. Optional
// fields are the ones the publishers genuinely omit: live times, tide
// extremes, air quality station names, transit mode.

func missingField(schema, field string) error {
	return fmt.Errorf("%s: missing field %q", schema, field)
}

// TransitRoute is one route's arrival snapshot. TimesLive, when present,
// parallels Times; individual entries may be null when no live estimate
// exists for that departure.
type TransitRoute struct {
	Route     string      `json:"route"`
	Dest      string      `json:"dest"`
	Dir       string      `json:"dir"`
	Mode      TransitMode `json:"mode"`
	Times     []string    `json:"times"`
	TimesLive []*string   `json:"times_live,omitempty"`
}

func (r *TransitRoute) UnmarshalJSON(data []byte) error {
	var aux struct {
		Route     *string     `json:"route"`
		Dest      *string     `json:"dest"`
		Dir       *string     `json:"dir"`
		Mode      TransitMode `json:"mode"`
		Times     *[]string   `json:"times"`
		TimesLive []*string   `json:"times_live"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Route == nil:
		return missingField("transit route", "route")
	case aux.Dest == nil:
		return missingField("transit route", "dest")
	case aux.Dir == nil:
		return missingField("transit route", "dir")
	case aux.Times == nil:
		return missingField("transit route", "times")
	}
	*r = TransitRoute{
		Route:     *aux.Route,
		Dest:      *aux.Dest,
		Dir:       *aux.Dir,
		Mode:      aux.Mode,
		Times:     *aux.Times,
		TimesLive: aux.TimesLive,
	}
	return nil
}

// BikeStation is one bikeshare station's availability snapshot.
type BikeStation struct {
	Name       string `json:"name"`
	Standard   int    `json:"avail_std"`
	Electric   int    `json:"avail_elec"`
	DocksAvail int    `json:"docks_avail"`
}

func (b *BikeStation) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name       *string `json:"name"`
		Standard   *int    `json:"avail_std"`
		Electric   *int    `json:"avail_elec"`
		DocksAvail *int    `json:"docks_avail"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Name == nil:
		return missingField("bike station", "name")
	case aux.Standard == nil:
		return missingField("bike station", "avail_std")
	case aux.Electric == nil:
		return missingField("bike station", "avail_elec")
	case aux.DocksAvail == nil:
		return missingField("bike station", "docks_avail")
	}
	*b = BikeStation{
		Name:       *aux.Name,
		Standard:   *aux.Standard,
		Electric:   *aux.Electric,
		DocksAvail: *aux.DocksAvail,
	}
	return nil
}

// WeatherReport is one location's current conditions.
type WeatherReport struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feel"`
	Condition string  `json:"weather"`
	Wind      Wind    `json:"wind"`
	Humidity  int     `json:"hum"`
}

func (w *WeatherReport) UnmarshalJSON(data []byte) error {
	var aux struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feel"`
		Condition *string  `json:"weather"`
		Wind      *Wind    `json:"wind"`
		Humidity  *int     `json:"hum"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Temp == nil:
		return missingField("weather report", "temp")
	case aux.FeelsLike == nil:
		return missingField("weather report", "feel")
	case aux.Condition == nil:
		return missingField("weather report", "weather")
	case aux.Wind == nil:
		return missingField("weather report", "wind")
	case aux.Humidity == nil:
		return missingField("weather report", "hum")
	}
	*w = WeatherReport{
		Temp:      *aux.Temp,
		FeelsLike: *aux.FeelsLike,
		Condition: *aux.Condition,
		Wind:      *aux.Wind,
		Humidity:  *aux.Humidity,
	}
	return nil
}

type Wind struct {
	Speed float64 `json:"speed"`
}

func (w *Wind) UnmarshalJSON(data []byte) error {
	var aux struct {
		Speed *float64 `json:"speed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Speed == nil {
		return missingField("wind", "speed")
	}
	w.Speed = *aux.Speed
	return nil
}

type CalendarEvent struct {
	Description string `json:"description"`
	DateStart   string `json:"date_start"`
}

func (c *CalendarEvent) UnmarshalJSON(data []byte) error {
	var aux struct {
		Description *string `json:"description"`
		DateStart   *string `json:"date_start"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Description == nil:
		return missingField("calendar event", "description")
	case aux.DateStart == nil:
		return missingField("calendar event", "date_start")
	}
	c.Description = *aux.Description
	c.DateStart = *aux.DateStart
	return nil
}

type AirQualityReport struct {
	Name         *string           `json:"name"`
	Measurements []json.RawMessage `json:"measurements"`
}

func (a *AirQualityReport) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name         *string            `json:"name"`
		Measurements *[]json.RawMessage `json:"measurements"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Measurements == nil {
		return missingField("air quality report", "measurements")
	}
	a.Name = aux.Name
	a.Measurements = *aux.Measurements
	return nil
}

// TideReport has no required fields: either extreme can be absent on days
// with a single tide cycle.
type TideReport struct {
	FirstHigh *string `json:"first_h,omitempty"`
	FirstLow  *string `json:"first_l,omitempty"`
}

// EphemerisReport names a body or location and its astronomical periods.
type EphemerisReport struct {
	Name    string  `json:"name"`
	Periods Periods `json:"periods"`
}

func (e *EphemerisReport) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name    *string  `json:"name"`
		Periods *Periods `json:"periods"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Name == nil:
		return missingField("ephemeris report", "name")
	case aux.Periods == nil:
		return missingField("ephemeris report", "periods")
	}
	e.Name = *aux.Name
	e.Periods = *aux.Periods
	return nil
}

// Period is one named ephemeris value, e.g. "sunrise" -> "06:12".
type Period struct {
	Name  string
	Value string
}

// Periods preserves the publication order of the period object's keys, which
// a plain map would lose.
type Periods []Period

func (p *Periods) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("periods: expected object, got %v", tok)
	}

	var out Periods
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("periods: expected key, got %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, Period{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

func (p Periods) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, period := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(period.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(period.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QueryInfo is the feed metadata carried by envelope-format payloads.
// Name is the display name; any other query parameters are kept verbatim.
type QueryInfo struct {
	Name  string
	Extra map[string]json.RawMessage
}

func (q *QueryInfo) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &q.Name); err != nil {
			return fmt.Errorf("query name: %w", err)
		}
		delete(fields, "name")
	}
	if len(fields) > 0 {
		q.Extra = fields
	} else {
		q.Extra = nil
	}
	return nil
}

func (q QueryInfo) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(q.Extra)+1)
	for k, v := range q.Extra {
		fields[k] = v
	}
	name, err := json.Marshal(q.Name)
	if err != nil {
		return nil, err
	}
	fields["name"] = name
	return json.Marshal(fields)
}

// Entry pairs a feed's decoded content with its optional query metadata.
// Entries are replaced wholesale on every successful decode, never merged.
type Entry struct {
	Content Content
	Query   *QueryInfo
}

// DisplayName returns the query display name, falling back to the feed key.
func (e Entry) DisplayName(key string) string {
	if e.Query != nil && e.Query.Name != "" {
		return e.Query.Name
	}
	return key
}
