// Package status keeps the single record describing the most recent
// orchestration outcome.
package status

import (
	"errors"
	"strings"
	"time"
)

// Record is the one status slot. OK records never carry an error; failed
// records always carry a non-empty LastError.
type Record struct {
	OK        bool       `json:"ok"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	ErrorKind string     `json:"errorKind,omitempty"`
	Trigger   string     `json:"trigger,omitempty"`
	RunID     string     `json:"runId,omitempty"`
}

// Default is what Read returns before anything was written.
func Default() Record {
	return Record{OK: true}
}

// Validate enforces the ok/lastError invariant.
func (r Record) Validate() error {
	if r.OK && (r.LastError != "" || r.ErrorKind != "") {
		return errors.New("status: ok record must not carry an error")
	}
	if !r.OK && strings.TrimSpace(r.LastError) == "" {
		return errors.New("status: failed record requires lastError")
	}
	return nil
}

func (r Record) clone() Record {
	if r.LastRun != nil {
		t := *r.LastRun
		r.LastRun = &t
	}
	return r
}
