package normalize

import "strings"

// Canonical field names used by the schedule model.
const (
	FieldDate        = "date"
	FieldOpenTime    = "openTime"
	FieldCloseTime   = "closeTime"
	FieldTime        = "time"
	FieldDuration    = "duration"
	FieldStatus      = "status"
	FieldClientName  = "clientName"
	FieldClientEmail = "clientEmail"
	FieldMessage     = "message"
)

type fieldSynonym struct {
	needles []string
	field   string
}

// Order matters: "client_email" must map to the e-mail field before the
// "client" needle claims it, and "openTime" must not be read as a time.
var fieldSynonyms = []fieldSynonym{
	{needles: []string{"open", "ouvert", "ouverture"}, field: FieldOpenTime},
	{needles: []string{"close", "ferm"}, field: FieldCloseTime},
	{needles: []string{"stat", "etat", "état"}, field: FieldStatus},
	{needles: []string{"mail"}, field: FieldClientEmail},
	{needles: []string{"nom", "client", "name"}, field: FieldClientName},
	{needles: []string{"dur"}, field: FieldDuration},
	{needles: []string{"date", "jour"}, field: FieldDate},
	{needles: []string{"time", "heure", "debut", "début", "start"}, field: FieldTime},
	{needles: []string{"message", "msg", "comment", "note"}, field: FieldMessage},
}

// NormalizeFieldName maps an arbitrarily cased or labeled spreadsheet column
// to its canonical field name. Unmapped keys pass through lower-cased.
func NormalizeFieldName(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	folded := foldKey(lowered)
	if folded == "" {
		return lowered
	}
	for _, syn := range fieldSynonyms {
		for _, needle := range syn.needles {
			if strings.Contains(folded, needle) {
				return syn.field
			}
		}
	}
	return lowered
}

func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
