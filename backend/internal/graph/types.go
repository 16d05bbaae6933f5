package graph

import "time"

// Passage is one chunk of ingested knowledge
type Passage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Hits is the number of query terms the passage matched
	Hits int `json:"hits,omitempty"`
}
