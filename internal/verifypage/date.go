package verifypage

import (
	"fmt"
	"time"
)

// Monterrey is UTC-6 without daylight saving, the zone sealed documents are
// presented in.
var Monterrey = time.FixedZone("MTY", -6*60*60)

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// HumanDate formats t as "30 mayo 2025, 17:50 (MTY)" in loc.
func HumanDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = Monterrey
	}
	lt := t.In(loc)
	s := fmt.Sprintf("%d %s %d, %02d:%02d", lt.Day(), months[lt.Month()-1], lt.Year(), lt.Hour(), lt.Minute())
	if name, _ := lt.Zone(); name != "" {
		s += " (" + name + ")"
	}
	return s
}

// ParseAndFormat renders an uploaded_at value. Unparseable input is returned
// as is.
func ParseAndFormat(uploadedAt, layout string, loc *time.Location) string {
	t, err := time.Parse(layout, uploadedAt)
	if err != nil {
		return uploadedAt
	}
	return HumanDate(t, loc)
}
