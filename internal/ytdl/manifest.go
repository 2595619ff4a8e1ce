package ytdl

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
)

// Manifest is the JSON document printed by --dump-json.
type Manifest struct {
	ID                 string               `json:"id,omitempty"`
	Title              string               `json:"title,omitempty"`
	FullTitle          string               `json:"fulltitle,omitempty"`
	DisplayID          string               `json:"display_id,omitempty"`
	Formats            []Format             `json:"formats,omitempty"`
	RequestedFormats   []Format             `json:"requested_formats,omitempty"`
	Thumbnails         []Thumbnail          `json:"thumbnails,omitempty"`
	Thumbnail          string               `json:"thumbnail,omitempty"`
	Description        string               `json:"description,omitempty"`
	UploadDate         string               `json:"upload_date,omitempty"`
	Uploader           string               `json:"uploader,omitempty"`
	UploaderID         string               `json:"uploader_id,omitempty"`
	UploaderURL        string               `json:"uploader_url,omitempty"`
	Channel            string               `json:"channel,omitempty"`
	ChannelID          string               `json:"channel_id,omitempty"`
	ChannelURL         string               `json:"channel_url,omitempty"`
	Duration           *float64             `json:"duration,omitempty"`
	ViewCount          *int64               `json:"view_count,omitempty"`
	LikeCount          *int64               `json:"like_count,omitempty"`
	AverageRating      json.RawMessage      `json:"average_rating,omitempty"`
	AgeLimit           *int64               `json:"age_limit,omitempty"`
	WebpageURL         string               `json:"webpage_url,omitempty"`
	WebpageURLBasename string               `json:"webpage_url_basename,omitempty"`
	Categories         []string             `json:"categories,omitempty"`
	Tags               []string             `json:"tags,omitempty"`
	IsLive             json.RawMessage      `json:"is_live,omitempty"`
	AutomaticCaptions  map[string][]Caption `json:"automatic_captions,omitempty"`
	Subtitles          map[string][]Caption `json:"subtitles,omitempty"`
	Chapters           []Chapter            `json:"chapters,omitempty"`
	Extractor          string               `json:"extractor,omitempty"`
	ExtractorKey       string               `json:"extractor_key,omitempty"`
	Playlist           json.RawMessage      `json:"playlist,omitempty"`
	PlaylistIndex      json.RawMessage      `json:"playlist_index,omitempty"`
	Format             string               `json:"format,omitempty"`
	FormatID           string               `json:"format_id,omitempty"`
	Width              *int64               `json:"width,omitempty"`
	Height             *int64               `json:"height,omitempty"`
	FPS                *float64             `json:"fps,omitempty"`
	VCodec             string               `json:"vcodec,omitempty"`
	VBR                *float64             `json:"vbr,omitempty"`
	ACodec             string               `json:"acodec,omitempty"`
	ABR                *float64             `json:"abr,omitempty"`
	Ext                string               `json:"ext,omitempty"`
	Filename           string               `json:"_filename,omitempty"`

	// Extra holds keys the fields above do not cover.
	Extra map[string]json.RawMessage `json:"-"`
}

// Format is one downloadable rendition.
type Format struct {
	FormatID          string             `json:"format_id,omitempty"`
	FormatNote        string             `json:"format_note,omitempty"`
	Format            string             `json:"format,omitempty"`
	Ext               string             `json:"ext,omitempty"`
	Container         string             `json:"container,omitempty"`
	Protocol          string             `json:"protocol,omitempty"`
	URL               string             `json:"url,omitempty"`
	Width             *int64             `json:"width,omitempty"`
	Height            *int64             `json:"height,omitempty"`
	FPS               *float64           `json:"fps,omitempty"`
	Quality           *float64           `json:"quality,omitempty"`
	VCodec            string             `json:"vcodec,omitempty"`
	ACodec            string             `json:"acodec,omitempty"`
	ASR               *int64             `json:"asr,omitempty"`
	TBR               *float64           `json:"tbr,omitempty"`
	VBR               *float64           `json:"vbr,omitempty"`
	ABR               *float64           `json:"abr,omitempty"`
	Filesize          *int64             `json:"filesize,omitempty"`
	FilesizeApprox    *int64             `json:"filesize_approx,omitempty"`
	DownloaderOptions *DownloaderOptions `json:"downloader_options,omitempty"`
	HTTPHeaders       map[string]string  `json:"http_headers,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DownloaderOptions carries per-format transfer hints.
type DownloaderOptions struct {
	HTTPChunkSize *int64 `json:"http_chunk_size,omitempty"`
}

// Thumbnail is a preview image.
type Thumbnail struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url,omitempty"`
	Width      *int64 `json:"width,omitempty"`
	Height     *int64 `json:"height,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// Chapter is a titled time range.
type Chapter struct {
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	Title     string   `json:"title,omitempty"`
}

// Caption is a subtitle track in one encoding.
type Caption struct {
	Ext  string `json:"ext,omitempty"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

var (
	manifestKeys = jsonKeys(reflect.TypeOf(Manifest{}))
	formatKeys   = jsonKeys(reflect.TypeOf(Format{}))
)

// UnmarshalJSON decodes known keys and keeps the rest in Extra.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type plain Manifest
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := unknownKeys(data, manifestKeys)
	if err != nil {
		return err
	}
	*m = Manifest(decoded)
	m.Extra = extra
	return nil
}

// UnmarshalJSON decodes known keys and keeps the rest in Extra.
func (f *Format) UnmarshalJSON(data []byte) error {
	type plain Format
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := unknownKeys(data, formatKeys)
	if err != nil {
		return err
	}
	*f = Format(decoded)
	f.Extra = extra
	return nil
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = struct{}{}
	}
	return keys
}

func unknownKeys(data []byte, known map[string]struct{}) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for key := range all {
		if _, ok := known[key]; ok {
			delete(all, key)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// FormatByID returns the format with the given identifier.
func (m *Manifest) FormatByID(id string) (Format, bool) {
	if m == nil {
		return Format{}, false
	}
	for _, f := range m.Formats {
		if f.FormatID == id {
			return f, true
		}
	}
	return Format{}, false
}

// VideoFormats returns formats carrying a video stream, in manifest order.
func (m *Manifest) VideoFormats() []Format {
	return m.filter(Format.HasVideo)
}

// AudioFormats returns audio-only formats, in manifest order.
func (m *Manifest) AudioFormats() []Format {
	return m.filter(func(f Format) bool { return !f.HasVideo() && f.HasAudio() })
}

func (m *Manifest) filter(keep func(Format) bool) []Format {
	if m == nil {
		return nil
	}
	var out []Format
	for _, f := range m.Formats {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// DisplayTitle prefers the full title and falls back to the id.
func (m *Manifest) DisplayTitle() string {
	switch {
	case m == nil:
		return ""
	case m.FullTitle != "":
		return m.FullTitle
	case m.Title != "":
		return m.Title
	default:
		return m.ID
	}
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// Size returns the exact or approximate byte size when the manifest has one.
func (f Format) Size() (uint64, bool) {
	switch {
	case f.Filesize != nil && *f.Filesize > 0:
		return uint64(*f.Filesize), true
	case f.FilesizeApprox != nil && *f.FilesizeApprox > 0:
		return uint64(*f.FilesizeApprox), true
	default:
		return 0, false
	}
}

// Resolution renders WxH, "audio only", or the format note.
func (f Format) Resolution() string {
	switch {
	case f.Width != nil && f.Height != nil:
		return fmt.Sprintf("%dx%d", *f.Width, *f.Height)
	case f.Height != nil:
		return fmt.Sprintf("%dp", *f.Height)
	case !f.HasVideo() && f.HasAudio():
		return "audio only"
	default:
		return f.FormatNote
	}
}

// Label is a one-line human summary used by pickers.
func (f Format) Label() string {
	parts := []string{f.FormatID}
	if f.Ext != "" {
		parts = append(parts, f.Ext)
	}
	if res := f.Resolution(); res != "" {
		parts = append(parts, res)
	}
	if f.FormatNote != "" && f.FormatNote != f.Resolution() {
		parts = append(parts, f.FormatNote)
	}
	if size, ok := f.Size(); ok {
		parts = append(parts, humanize.IBytes(size))
	}
	return strings.Join(parts, "  ")
}
