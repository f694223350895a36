package domain

import "time"

// ArtifactEntry links a produced artifact back to its parent. Sessions are
// roots, documents reference a parent session, audio entries reference a
// parent document. IDs encode lineage as a prefix: a document under
// session "K7D" is "K7D-01", audio under it is "K7D-01-A".
type ArtifactEntry struct {
	ID           string       `json:"id"`
	Type         ArtifactType `json:"type"`
	ParentID     string       `json:"parentId,omitempty"`
	ExternalID   string       `json:"externalId,omitempty"`
	Query        string       `json:"query,omitempty"`
	Title        string       `json:"title,omitempty"`
	CurrentTitle string       `json:"currentTitle,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
