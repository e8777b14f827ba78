package domain

import (
	"encoding/json"
	"time"
)

// Snapshot is one fetched configuration document together with its version
// tag and the time it was produced. Snapshots are immutable; a refresh always
// produces a new value.
type Snapshot struct {
	versionTag string
	document   string
	fetchedAt  time.Time
}

// EmptySnapshot is the "never fetched" snapshot. It is unusable for evaluation.
var EmptySnapshot = Snapshot{}

// NewSnapshot creates a snapshot from a fetched document.
func NewSnapshot(versionTag, document string, fetchedAt time.Time) Snapshot {
	return Snapshot{
		versionTag: versionTag,
		document:   document,
		fetchedAt:  fetchedAt,
	}
}

// VersionTag returns the opaque revision identifier (ETag) of the document.
func (s Snapshot) VersionTag() string { return s.versionTag }

// Document returns the raw JSON configuration text.
func (s Snapshot) Document() string { return s.document }

// FetchedAt returns when the document content was downloaded.
func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// IsEmpty reports whether the snapshot holds no document.
func (s Snapshot) IsEmpty() bool {
	return s.document == ""
}

// SameContent reports whether both snapshots carry the same document text.
func (s Snapshot) SameContent(other Snapshot) bool {
	return s.document == other.document
}

type snapshotJSON struct {
	ETag      string `json:"etag"`
	Config    string `json:"config"`
	FetchTime int64  `json:"fetchTime"`
}

// MarshalJSON encodes the snapshot for cache stores. The fetch time is stored
// in epoch milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var millis int64
	if !s.fetchedAt.IsZero() {
		millis = s.fetchedAt.UnixMilli()
	}
	return json.Marshal(snapshotJSON{
		ETag:      s.versionTag,
		Config:    s.document,
		FetchTime: millis,
	})
}

// UnmarshalJSON decodes a snapshot written by MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var fetchedAt time.Time
	if raw.FetchTime > 0 {
		fetchedAt = time.UnixMilli(raw.FetchTime)
	}

	*s = NewSnapshot(raw.ETag, raw.Config, fetchedAt)
	return nil
}
