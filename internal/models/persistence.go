package models

import "time"

// SessionData is the persistence format for a single session.
type SessionData struct {
	Entries  map[string]string `json:"entries"`
	Fired    bool              `json:"fired"`
	LastSeen time.Time         `json:"last_seen"`
}

// Storage is the versioned on-disk snapshot envelope. Version 1 files carry
// no Fired flag per session; they unmarshal with Fired as zero-value, which
// reopens the gate on restart — acceptable, since a restart is a new
// process lifetime.
type Storage struct {
	Version  int                     `json:"version"`
	Sessions map[string]*SessionData `json:"sessions"`
}

const StorageVersion = 2

func NewStorage() *Storage {
	return &Storage{
		Version:  StorageVersion,
		Sessions: make(map[string]*SessionData),
	}
}
