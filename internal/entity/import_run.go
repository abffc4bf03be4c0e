package entity

import "time"

// ImportRun is the audit record of one CSV upload.
type ImportRun struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	Processed  int       `json:"processed"`
	Inserted   int       `json:"inserted"`
	ErrorCount int       `json:"errorCount"`
	NewFields  string    `json:"newFields"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}
