package model

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// RemoteObject is one entry of an object-store prefix listing.
type RemoteObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// IsDirMarker reports whether the listing entry is a "folder" placeholder rather than a file.
func (o RemoteObject) IsDirMarker() bool {
	return o.Key == "" || strings.HasSuffix(o.Key, "/")
}

// BaseName is the final path segment of the key.
func (o RemoteObject) BaseName() string { return path.Base(o.Key) }

// Archive is a fully built zip held in memory.
type Archive struct {
	Filename string
	Body     []byte
	Entries  int
}

// DownloadLinks are presigned URLs to the two pre-built archives of a scope.
type DownloadLinks struct {
	SquadArchive string    `json:"squad_archive"`
	TotalArchive string    `json:"total_archive"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ArchiveFilename is the download name for a scope's archive.
func ArchiveFilename(s Scope) string {
	return fmt.Sprintf("shift_%d_squad_%d.zip", s.Shift, s.Squad)
}

// SquadPrefix and SharedPrefix are the two object prefixes a scope unlocks.
func SquadPrefix(s Scope) string    { return fmt.Sprintf("%d/%d/", s.Shift, s.Squad) }
func SharedPrefix(shift int) string { return fmt.Sprintf("%d/total/", shift) }
