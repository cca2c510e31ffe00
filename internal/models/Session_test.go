package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := NewSession("dev-1")

	assert.Equal(t, "dev-1", s.ID)
	assert.NotNil(t, s.Entries)
	require.NotNil(t, s.State)
	assert.False(t, s.State.Fired())
	assert.False(t, s.LastSeen.IsZero())
}

func TestSession_DataRoundTrip(t *testing.T) {
	s := NewSession("dev-1")
	s.Entries["_px_fpi"] = "id-1"
	s.State.MarkFired()

	data := s.Data()
	assert.Equal(t, "id-1", data.Entries["_px_fpi"])
	assert.True(t, data.Fired)
	assert.Equal(t, s.LastSeen, data.LastSeen)

	restored := FromData("dev-1", data)
	assert.Equal(t, "id-1", restored.Entries["_px_fpi"])
	assert.True(t, restored.State.Fired())
	assert.Equal(t, s.LastSeen, restored.LastSeen)
}

func TestSession_DataCopiesEntries(t *testing.T) {
	s := NewSession("dev-1")
	s.Entries["k"] = "v"

	data := s.Data()
	s.Entries["k"] = "mutated"

	assert.Equal(t, "v", data.Entries["k"])
}

func TestFromData_NilData(t *testing.T) {
	s := FromData("dev-1", nil)

	assert.Equal(t, "dev-1", s.ID)
	assert.NotNil(t, s.Entries)
	assert.False(t, s.State.Fired())
}

func TestFromData_ZeroLastSeenGetsNow(t *testing.T) {
	s := FromData("dev-1", &SessionData{Entries: map[string]string{}})
	assert.False(t, s.LastSeen.IsZero())
}

func TestStorage_JSONRoundTrip(t *testing.T) {
	storage := NewStorage()
	storage.Sessions["dev-1"] = &SessionData{
		Entries:  map[string]string{"_px_fpi": "id-1"},
		Fired:    true,
		LastSeen: time.Now().UTC().Truncate(time.Second),
	}

	raw, err := json.Marshal(storage)
	require.NoError(t, err)

	var decoded Storage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, StorageVersion, decoded.Version)
	require.Contains(t, decoded.Sessions, "dev-1")
	assert.Equal(t, "id-1", decoded.Sessions["dev-1"].Entries["_px_fpi"])
	assert.True(t, decoded.Sessions["dev-1"].Fired)
}

func TestStorage_V1PayloadDecodes(t *testing.T) {
	raw := []byte(`{"version":1,"sessions":{"dev-1":{"entries":{"tluid":"t9"}}}}`)

	var decoded Storage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, 1, decoded.Version)
	assert.False(t, decoded.Sessions["dev-1"].Fired, "v1 payloads carry no fired flag")
}
