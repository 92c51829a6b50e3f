package store

import "time"

// Search statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Search is one recorded search session.
type Search struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"` // "text" or "image"
	Query       string    `db:"query"`
	Filters     string    `db:"filters"`
	Status      string    `db:"status"`
	ResultCount int       `db:"result_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Artifact is a file kept for a search, such as the photo behind an image search.
type Artifact struct {
	ID        string    `db:"id"`
	SearchID  string    `db:"search_id"`
	Path      string    `db:"path"` // Relative path in the artifact store
	Type      string    `db:"type"` // e.g. "query_image"
	CreatedAt time.Time `db:"created_at"`
	Digest    string    `db:"digest"` // Content hash
}

// Storage defines the interface for persistence
type Storage interface {
	// Search history
	CreateSearch(search *Search) error
	GetSearch(id string) (*Search, error)
	UpdateSearch(search *Search) error
	ListSearches(limit int) ([]*Search, error)

	// Artifact Management
	// SaveArtifact persists the metadata and the content
	SaveArtifact(artifact *Artifact, content []byte) error
	GetArtifact(id string) (*Artifact, []byte, error)
	ListArtifacts(searchID string) ([]*Artifact, error)

	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	ListConfig() (map[string]string, error)

	Close() error
}
