// Package inventory holds the stored inventory model, the identity of a PC
// and the rules that merge a submission into previously stored state.
package inventory

import (
	"strings"
	"time"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#228BE6"

// PC is the stored inventory record of one machine, keyed by the hash of its serial.
type PC struct {
	ID          string    `json:"id"`
	Host        string    `json:"host"`
	Serial      string    `json:"serial"`
	CPU         string    `json:"cpu"`
	Mainboard   string    `json:"mainboard"`
	RAMTotalGB  int64     `json:"ram_total_gb"`
	RAMSlots    string    `json:"ram_slots"`
	Resolution  string    `json:"resolution"`
	Notes       string    `json:"notes"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RAMStick is one populated memory slot of a PC.
type RAMStick struct {
	SizeGB int64  `json:"size_gb"`
	Type   string `json:"type"`
	Model  string `json:"model"`
}

// Disk is one block device of a PC.
type Disk struct {
	SizeGB int64  `json:"size_gb"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
	Path   string `json:"path"`
}

// Tag labels PCs. Its lifecycle is independent of any PC.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagRef is the short form of a tag shown in listings.
type TagRef struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PCDetails is a PC together with its child collections and tags.
type PCDetails struct {
	PC
	GPUs      []string   `json:"gpus"`
	RAMSticks []RAMStick `json:"ram_sticks"`
	Disks     []Disk     `json:"disks"`
	Tags      []Tag      `json:"tags"`
}

// Summary is one row of the PC listing.
type Summary struct {
	ID          string    `json:"id"`
	Host        string    `json:"host"`
	CPU         string    `json:"cpu"`
	RAMTotalGB  int64     `json:"ram_total_gb"`
	SubmittedAt time.Time `json:"submitted_at"`
	Tags        []TagRef  `json:"tags"`
}

// Sort keys and orders accepted by the listing.
const (
	SortBySubmittedAt = "submitted_at"
	SortByHost        = "host"
	SortByCPU         = "cpu"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilter selects and orders PCs for the listing.
type ListFilter struct {
	SortBy    string
	SortOrder string
	Tag       string
}

// Normalize applies listing defaults: unknown sort keys fall back to
// submitted_at, an empty order means descending and any other order than
// "desc" (case-insensitive) means ascending.
func (f ListFilter) Normalize() ListFilter {
	switch f.SortBy {
	case SortBySubmittedAt, SortByHost, SortByCPU:
	default:
		f.SortBy = SortBySubmittedAt
	}
	if f.SortOrder == "" || strings.EqualFold(f.SortOrder, SortDesc) {
		f.SortOrder = SortDesc
	} else {
		f.SortOrder = SortAsc
	}
	return f
}
