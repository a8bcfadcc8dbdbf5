package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldName(t *testing.T) {
	tests := map[string]string{
		"date":               FieldDate,
		" Date ":             FieldDate,
		"Jour":               FieldDate,
		"openTime":           FieldOpenTime,
		"Heure d'ouverture":  FieldOpenTime,
		"OPEN_TIME":          FieldOpenTime,
		"closeTime":          FieldCloseTime,
		"Heure de fermeture": FieldCloseTime,
		"time":               FieldTime,
		"Heure":              FieldTime,
		"duration":           FieldDuration,
		"Durée (min)":        FieldDuration,
		"Statut":             FieldStatus,
		"STATUS":             FieldStatus,
		"client_name":        FieldClientName,
		"Nom":                FieldClientName,
		"client_email":       FieldClientEmail,
		"E-mail":             FieldClientEmail,
		"Message":            FieldMessage,
		"Commentaire":        FieldMessage,
		"Prix":               "prix",
		"  Extra Column ":    "extra column",
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeFieldName(raw), raw)
	}
}

func TestNormalizeFieldName_CanonicalIsStable(t *testing.T) {
	for _, field := range []string{FieldDate, FieldOpenTime, FieldCloseTime, FieldTime, FieldDuration, FieldStatus, FieldClientName, FieldClientEmail, FieldMessage} {
		assert.Equal(t, field, NormalizeFieldName(field))
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := map[string]Status{
		"confirmed":  StatusConfirmed,
		"Confirmé":   StatusConfirmed,
		"VALIDÉ":     StatusConfirmed,
		"pending":    StatusPending,
		"En attente": StatusPending,
		"":           StatusPending,
		"cancelled":  StatusCancelled,
		"Annulé":     StatusCancelled,
		"refusé":     StatusCancelled,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ClassifyStatus(raw), raw)
	}
}

func TestStatusWireNames(t *testing.T) {
	assert.Equal(t, "confirmed", StatusConfirmed.String())
	assert.Equal(t, "unknown", Status(0).String())

	text, err := StatusPending.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "pending", string(text))

	got, ok := ParseStatus(" Cancelled ")
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, got)

	_, ok = ParseStatus("maybe")
	assert.False(t, ok)

	var decoded Status
	assert.NoError(t, decoded.UnmarshalText([]byte("confirmed")))
	assert.Equal(t, StatusConfirmed, decoded)
	assert.Error(t, decoded.UnmarshalText([]byte("maybe")))
}
