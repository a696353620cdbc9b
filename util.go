package littleexif

import (
	"math"
	"time"

	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

// dateTimeLayout is the Exif-standard ASCII datetime layout: fixed-width,
// colon-separated date, space, colon-separated time.
const dateTimeLayout = "2006:01:02 15:04:05"

func stringTag(id uint16, group exiftag.Group, s string) ifd.Tag {
	entry, _ := exiftag.Lookup(id, group)
	return ifd.Tag{ID: id, Group: group, Format: exiftag.STRING, Role: entry.Role, Writable: true, Value: ifd.Value{Str: s}}
}

func stringValue(t ifd.Tag) (string, bool) {
	if t.Format != exiftag.STRING {
		return "", false
	}
	return t.Value.Str, true
}

func dateTimeAt(m *Metadata, group exiftag.Group, dateID, subSecID uint16) (time.Time, bool) {
	tags := m.GetTag(TagPrototype{ID: dateID, Group: group})
	if len(tags) == 0 {
		return time.Time{}, false
	}
	s, ok := stringValue(tags[0])
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}

	if subSecID != 0 {
		// Every SubSecTime* tag, DateTime's included, lives in the EXIF SubIFD.
		if subTags := m.GetTag(TagPrototype{ID: subSecID, Group: exiftag.EXIF}); len(subTags) > 0 {
			if subs, ok := stringValue(subTags[0]); ok {
				t = t.Add(subSecondsOf(subs))
			}
		}
	}
	return t, true
}

func subSecondsOf(digits string) time.Duration {
	var nanos time.Duration
	res := time.Second
	for _, r := range digits {
		if r < '0' || r > '9' {
			break
		}
		nanos = nanos*10 + time.Duration(r-'0')
		res /= 10
		if res == 0 {
			break
		}
	}
	return nanos * res
}

// DateTime reports the Exif datetime, checking EXIF/DateTimeOriginal, then
// EXIF/DateTimeDigitized, then GENERIC/DateTime. ok is false if none parse.
func (m *Metadata) DateTime() (t time.Time, ok bool) {
	if t, ok = dateTimeAt(m, exiftag.EXIF, 0x9003, 0x9291); ok {
		return
	}
	if t, ok = dateTimeAt(m, exiftag.EXIF, 0x9004, 0x9292); ok {
		return
	}
	return dateTimeAt(m, exiftag.GENERIC, 0x0132, 0x9290)
}

// SetDateTime sets EXIF/DateTimeOriginal, EXIF/DateTimeDigitized and
// GENERIC/DateTime (plus their SubSecTime* companions) to t.
func (m *Metadata) SetDateTime(t time.Time) {
	v := t.Format(dateTimeLayout)
	sub := subSecondsString(t)

	m.SetTag(stringTag(0x9003, exiftag.EXIF, v))
	m.SetTag(stringTag(0x9004, exiftag.EXIF, v))
	m.SetTag(stringTag(0x0132, exiftag.GENERIC, v))
	if sub != "" {
		m.SetTag(stringTag(0x9291, exiftag.EXIF, sub))
		m.SetTag(stringTag(0x9292, exiftag.EXIF, sub))
		m.SetTag(stringTag(0x9290, exiftag.EXIF, sub))
	}
}

func subSecondsString(t time.Time) string {
	nano := t.Nanosecond()
	if nano == 0 {
		return ""
	}
	p := make([]byte, 0, 9)
	res := 100000000
	for nano > 0 {
		digit := nano / res
		nano %= res
		res /= 10
		p = append(p, byte('0'+digit))
	}
	return string(p)
}

// degMinSec decodes a 3-rational (degrees, minutes, seconds) tag value
// into a single float64 angle.
func degMinSec(t ifd.Tag) (val float64, ok bool) {
	if len(t.Value.URatNum) != 3 || len(t.Value.URatDenom) != 3 {
		return 0, false
	}
	div := 1.0
	for i := 0; i < 3; i++ {
		if t.Value.URatDenom[i] == 0 {
			return 0, false
		}
		val += float64(t.Value.URatNum[i]) / (div * float64(t.Value.URatDenom[i]))
		div *= 60
	}
	return val, true
}

// toDegMinSec encodes a positive float64 angle into a 3-rational (degrees,
// minutes, seconds) tag value, keeping the seconds fraction to 1/100 of a
// second — about 30cm of precision on the equator.
func toDegMinSec(val float64) ifd.Value {
	const secondFractions = 100

	deg, f := math.Modf(val)
	min, f := math.Modf(f * 60)
	sec := uint32(f*60*secondFractions + 0.5)
	minU, degU := uint32(min), uint32(deg)

	if sec == 60*secondFractions {
		sec = 0
		minU++
		if minU == 60 {
			minU = 0
			degU++
		}
	}

	return ifd.Value{
		URatNum:   []uint32{degU, minU, sec},
		URatDenom: []uint32{1, 1, secondFractions},
	}
}

func locSign(t ifd.Tag, pos, neg string) (sign float64, ok bool) {
	s, ok := stringValue(t)
	if !ok {
		return 0, false
	}
	switch s {
	case pos:
		return 1, true
	case neg:
		return -1, true
	default:
		return 0, false
	}
}

// LatLong reports the GPS latitude and longitude, in signed decimal
// degrees (positive north/east). ok is false unless all four GPS tags are
// present and well-formed.
func (m *Metadata) LatLong() (lat, long float64, ok bool) {
	latRefTags := m.GetTag(TagPrototype{ID: 0x0001, Group: exiftag.GPS})
	lonRefTags := m.GetTag(TagPrototype{ID: 0x0003, Group: exiftag.GPS})
	latTags := m.GetTag(TagPrototype{ID: 0x0002, Group: exiftag.GPS})
	lonTags := m.GetTag(TagPrototype{ID: 0x0004, Group: exiftag.GPS})
	if len(latRefTags) == 0 || len(lonRefTags) == 0 || len(latTags) == 0 || len(lonTags) == 0 {
		return 0, 0, false
	}

	latSign, ok1 := locSign(latRefTags[0], "N", "S")
	lonSign, ok2 := locSign(lonRefTags[0], "E", "W")
	latAbs, ok3 := degMinSec(latTags[0])
	lonAbs, ok4 := degMinSec(lonTags[0])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, 0, false
	}
	return latSign * latAbs, lonSign * lonAbs, true
}

// SetLatLong sets GPSVersionID, GPSLatitudeRef/GPSLatitude and
// GPSLongitudeRef/GPSLongitude from signed decimal-degree coordinates.
func (m *Metadata) SetLatLong(lat, lon float64) {
	m.SetTag(ifd.Tag{ID: 0x0000, Group: exiftag.GPS, Format: exiftag.INT8U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{U8: []uint8{2, 2, 0, 0}}})

	latRef := "N"
	if lat < 0 {
		latRef = "S"
		lat = -lat
	}
	lonRef := "E"
	if lon < 0 {
		lonRef = "W"
		lon = -lon
	}

	m.SetTag(stringTag(0x0001, exiftag.GPS, latRef))
	m.SetTag(stringTag(0x0003, exiftag.GPS, lonRef))
	m.SetTag(ifd.Tag{ID: 0x0002, Group: exiftag.GPS, Format: exiftag.RATIONAL64U, Role: exiftag.RoleValue, Writable: true,
		Value: toDegMinSec(lat)})
	m.SetTag(ifd.Tag{ID: 0x0004, Group: exiftag.GPS, Format: exiftag.RATIONAL64U, Role: exiftag.RoleValue, Writable: true,
		Value: toDegMinSec(lon)})
}
