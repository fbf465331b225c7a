package backends

import (
	"fmt"
	"strings"
	"time"
)

// TagType classifies a tag when the backend exposes typed tag groups
type TagType int

const (
	TagGeneral TagType = iota
	TagArtist
	TagCopyright
	TagCharacter
	TagAmbiguous
)

func (t TagType) String() string {
	switch t {
	case TagArtist:
		return "artist"
	case TagCopyright:
		return "copyright"
	case TagCharacter:
		return "character"
	case TagAmbiguous:
		return "ambiguous"
	default:
		return "general"
	}
}

func (t TagType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TagType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "general":
		*t = TagGeneral
	case "artist":
		*t = TagArtist
	case "copyright":
		*t = TagCopyright
	case "character":
		*t = TagCharacter
	case "ambiguous":
		*t = TagAmbiguous
	default:
		return fmt.Errorf("unknown tag type %q", string(text))
	}
	return nil
}

// Tag is a single search or image tag. Two tags are equal when name and type match.
type Tag struct {
	Name string  `json:"name"`
	Type TagType `json:"type"`
}

// TagsFromString splits a whitespace-separated tag string into tags of the given type.
func TagsFromString(s string, tagType TagType) []Tag {
	fields := strings.Fields(s)
	tags := make([]Tag, len(fields))
	for i, f := range fields {
		tags[i] = Tag{Name: f, Type: tagType}
	}
	return tags
}

// TagsString joins tag names with single spaces.
func TagsString(tags []Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, " ")
}

// SafeSearchRating is the content rating normalized across backends
type SafeSearchRating int

const (
	RatingUnknown SafeSearchRating = iota
	RatingSafe
	RatingQuestionable
	RatingExplicit
)

// ParseRating maps the rating strings used by image boards to a SafeSearchRating.
func ParseRating(s string) SafeSearchRating {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "safe", "g", "general":
		return RatingSafe
	case "q", "questionable":
		return RatingQuestionable
	case "e", "explicit":
		return RatingExplicit
	default:
		return RatingUnknown
	}
}

func (r SafeSearchRating) String() string {
	switch r {
	case RatingSafe:
		return "safe"
	case RatingQuestionable:
		return "questionable"
	case RatingExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

func (r SafeSearchRating) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts anything ParseRating does; unrecognized values
// become RatingUnknown.
func (r *SafeSearchRating) UnmarshalText(text []byte) error {
	*r = ParseRating(string(text))
	return nil
}

// PlaceholderMD5 stands in for a checksum the backend did not supply.
const PlaceholderMD5 = "00000000000000000000000000000000"

// PlaceholderDimension is used for every width and height a backend omits.
const PlaceholderDimension = 500

// Image is a single search hit
type Image struct {
	ID                 string           `json:"id"`
	FileURL            string           `json:"file_url"`
	SampleURL          string           `json:"sample_url"`
	PreviewURL         string           `json:"preview_url"`
	Width              int              `json:"width"`
	Height             int              `json:"height"`
	SampleWidth        int              `json:"sample_width"`
	SampleHeight       int              `json:"sample_height"`
	PreviewWidth       int              `json:"preview_width"`
	PreviewHeight      int              `json:"preview_height"`
	Tags               []Tag            `json:"tags"`
	WebURL             string           `json:"web_url"`
	ParentID           *string          `json:"parent_id,omitempty"`
	SafeSearchRating   SafeSearchRating `json:"rating"`
	Score              int              `json:"score"`
	MD5                string           `json:"md5"`
	CreatedAt          time.Time        `json:"created_at"`
	SearchPage         int              `json:"search_page"`
	SearchPagePosition int              `json:"search_page_position"`

	// DegradedFidelity is set when dimensions, tags, score, rating or
	// checksum are placeholders rather than backend metadata.
	DegradedFidelity bool `json:"degraded_fidelity,omitempty"`
}

// SearchResult is one page of images. It is not modified after construction.
type SearchResult struct {
	images        []Image
	query         []Tag
	currentOffset int
}

// NewSearchResult copies images and query into a new SearchResult.
func NewSearchResult(images []Image, query []Tag, offset int) *SearchResult {
	return &SearchResult{
		images:        cloneImages(images),
		query:         append([]Tag(nil), query...),
		currentOffset: offset,
	}
}

// Images returns a copy of the images in backend order.
func (r *SearchResult) Images() []Image {
	return cloneImages(r.images)
}

// Len returns the number of images on the page.
func (r *SearchResult) Len() int {
	return len(r.images)
}

// Query returns the parsed tags the page was searched with.
func (r *SearchResult) Query() []Tag {
	return append([]Tag(nil), r.query...)
}

// CurrentOffset returns the zero-indexed page number.
func (r *SearchResult) CurrentOffset() int {
	return r.currentOffset
}

func cloneImages(images []Image) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		img.Tags = append([]Tag(nil), img.Tags...)
		if img.ParentID != nil {
			id := *img.ParentID
			img.ParentID = &id
		}
		out[i] = img
	}
	return out
}
