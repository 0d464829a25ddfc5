package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MediaKind identifies one of the media tables. All kinds share the same
// record shape and CRUD workflow; they differ only in naming.
type MediaKind string

const (
	KindVideo   MediaKind = "video"
	KindPicture MediaKind = "picture"
	KindAudio   MediaKind = "audio"
	KindFile    MediaKind = "file"
)

// Kinds lists every media kind in a stable order.
var Kinds = []MediaKind{KindVideo, KindPicture, KindAudio, KindFile}

type kindInfo struct {
	table  string
	dir    string
	plural string
}

var kindInfos = map[MediaKind]kindInfo{
	KindVideo:   {table: "videos", dir: "videos", plural: "videos"},
	KindPicture: {table: "pictures", dir: "pictures", plural: "pictures"},
	KindAudio:   {table: "audios", dir: "audios", plural: "audios"},
	KindFile:    {table: "other_files", dir: "documents", plural: "files"},
}

// ParseKind maps a singular or plural name ("video", "videos") to a kind.
func ParseKind(s string) (MediaKind, error) {
	for k, info := range kindInfos {
		if s == string(k) || s == info.plural {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// Valid reports whether k is a known kind.
func (k MediaKind) Valid() bool {
	_, ok := kindInfos[k]
	return ok
}

// Table is the database table holding rows of this kind.
func (k MediaKind) Table() string { return kindInfos[k].table }

// Dir is the storage directory binaries of this kind are written under.
func (k MediaKind) Dir() string { return kindInfos[k].dir }

// Plural is used for route segments and list response keys.
func (k MediaKind) Plural() string { return kindInfos[k].plural }

// FileField is the multipart field carrying the binary payload.
func (k MediaKind) FileField() string { return string(k) }

// URLField is the multipart field carrying an external URL.
func (k MediaKind) URLField() string { return string(k) + "Url" }

// Media is one uploaded or linked item of any kind.
// Exactly one of File and URL is expected to be set; the database does not enforce it.
type Media struct {
	ID          int64     `json:"id"`
	Kind        MediaKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	File        *string   `json:"file"`
	URL         *string   `json:"url"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StorageKey is the object key of the stored binary, or "" when the item is a link.
func (m *Media) StorageKey() string {
	if m.File == nil || *m.File == "" {
		return ""
	}
	return m.Kind.Dir() + "/" + *m.File
}

// PublicURL is the path clients render: the served file path for stored
// binaries, the external URL otherwise.
func (m *Media) PublicURL() string {
	if key := m.StorageKey(); key != "" {
		return "/" + key
	}
	if m.URL != nil {
		return *m.URL
	}
	return ""
}

// MarshalJSON adds the derived "<kind>_url" field, e.g. "video_url".
func (m Media) MarshalJSON() ([]byte, error) {
	type plain Media
	b, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	out[string(m.Kind)+"_url"] = m.PublicURL()
	return json.Marshal(out)
}
