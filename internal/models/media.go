package models

// Movie is a film in the library. SourcePath identifies the media file on
// disk and is the stable key the transcode pipeline syncs against.
type Movie struct {
	BaseModel
	Title        string `gorm:"not null;index" json:"title"`
	Year         int    `json:"year"`
	SourcePath   string `gorm:"uniqueIndex;not null" json:"source_path"`
	SizeBytes    int64  `json:"size_bytes"`
	IsTranscoded bool   `gorm:"default:false;index" json:"is_transcoded"`
}

// TableName returns the database table name for Movie.
func (Movie) TableName() string {
	return "movies"
}

// Episode is a single episode of a series.
type Episode struct {
	BaseModel
	SeriesTitle  string `gorm:"not null;index" json:"series_title"`
	Season       int    `json:"season"`
	Episode      int    `json:"episode"`
	Title        string `json:"title"`
	SourcePath   string `gorm:"uniqueIndex;not null" json:"source_path"`
	SizeBytes    int64  `json:"size_bytes"`
	IsTranscoded bool   `gorm:"default:false;index" json:"is_transcoded"`
}

// TableName returns the database table name for Episode.
func (Episode) TableName() string {
	return "episodes"
}
