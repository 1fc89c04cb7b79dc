package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChangeValueShapes(t *testing.T) {
	v, err := ParseChangeValue(ChangeMonitoringInterval, []byte(`15`))
	require.NoError(t, err)
	assert.Equal(t, 15, v.Number)

	v, err = ParseChangeValue(ChangeScreenTimePerApp, []byte(`{"app":"com.instagram.android","minutes":45}`))
	require.NoError(t, err)
	assert.Equal(t, "com.instagram.android", v.App)
	assert.Equal(t, 45, v.Number)

	v, err = ParseChangeValue(ChangeAgreementAppLimits, []byte(`{"com.roblox.client":60}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"com.roblox.client": 60}, v.Limits)

	v, err = ParseChangeValue(ChangeBedtimeStart, []byte(`"21:30"`))
	require.NoError(t, err)
	assert.Equal(t, "21:30", v.Clock)

	v, err = ParseChangeValue(ChangeCrisisAllowlist, []byte(`["+77001234567"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"+77001234567"}, v.Contacts)
}

func TestParseChangeValueRejectsMalformed(t *testing.T) {
	cases := []struct {
		name       string
		changeType ChangeType
		raw        string
	}{
		{"unknown type", ChangeType("wallpaper"), `1`},
		{"string for number", ChangeMonitoringInterval, `"15"`},
		{"zero interval", ChangeMonitoringInterval, `0`},
		{"bad clock", ChangeBedtimeEnd, `"25:00"`},
		{"missing app", ChangeScreenTimePerApp, `{"minutes":10}`},
		{"too many minutes", ChangeScreenTimeDaily, `2000`},
		{"empty contact", ChangeCrisisAllowlist, `[" "]`},
		{"empty payload", ChangeAgeRestriction, ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseChangeValue(tc.changeType, []byte(tc.raw))
			assert.Error(t, err)
		})
	}

	_, err := ParseChangeValue(ChangeType("wallpaper"), []byte(`1`))
	assert.ErrorIs(t, err, ErrUnknownChangeType)
	_, err = ParseChangeValue(ChangeMonitoringInterval, []byte(`"x"`))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestChangeValueEnvelopeRoundTrip(t *testing.T) {
	original := ChangeValue{Type: ChangeScreenTimePerApp, App: "com.tiktok", Number: 30}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"screen_time_per_app","value":{"app":"com.tiktok","minutes":30}}`, string(data))

	var decoded ChangeValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded))
}

func TestChangeValueEnvelopeRejectsUnknownTag(t *testing.T) {
	var decoded ChangeValue
	err := json.Unmarshal([]byte(`{"type":"wallpaper","value":1}`), &decoded)
	assert.ErrorIs(t, err, ErrUnknownChangeType)
}

func TestChangeValueEqualIgnoresContactOrder(t *testing.T) {
	a := ChangeValue{Type: ChangeCrisisAllowlist, Contacts: []string{"a", "b"}}
	b := ChangeValue{Type: ChangeCrisisAllowlist, Contacts: []string{"b", "a"}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(ChangeValue{Type: ChangeCrisisAllowlist, Contacts: []string{"a"}}))
}
