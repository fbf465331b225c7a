package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const hydrusAccessKeyParam = "Hydrus-Client-API-Access-Key"

func hydrusDialect() dialect {
	return dialect{
		buildURL:     buildHydrusSearchURL,
		parse:        parseHydrusResponse,
		webURL:       hydrusWebURL,
		defaultQuery: "",
		auth:         AuthRequired,
		probePath:    "api_version",
	}
}

// buildHydrusSearchURL returns the search_files URL. Hydrus returns every
// matching id at once, so the page is applied when parsing.
func buildHydrusSearchURL(req pageRequest) (string, error) {
	var b strings.Builder
	b.WriteString(req.settings.Endpoint)
	b.WriteString("/get_files/search_files?system_inbox=true&system_archive=true")

	if tokens := strings.Fields(req.tags); len(tokens) > 0 {
		encoded, err := json.Marshal(tokens)
		if err != nil {
			return "", err
		}
		b.WriteString("&tags=")
		b.WriteString(url.QueryEscape(string(encoded)))
	}

	b.WriteString("&" + hydrusAccessKeyParam + "=")
	b.WriteString(url.QueryEscape(req.settings.Password))
	return b.String(), nil
}

func hydrusFileURL(settings Settings, id string) string {
	return settings.Endpoint + "/get_files/file?" + hydrusAccessKeyParam + "=" +
		url.QueryEscape(settings.Password) + "&file_id=" + url.QueryEscape(id)
}

func hydrusThumbnailURL(settings Settings, id string) string {
	return settings.Endpoint + "/get_files/thumbnail?" + hydrusAccessKeyParam + "=" +
		url.QueryEscape(settings.Password) + "&file_id=" + url.QueryEscape(id)
}

// Hydrus has no post page, so the browsable URL is the file itself.
func hydrusWebURL(settings Settings, id string) string {
	return hydrusFileURL(settings, id)
}

type hydrusSearchResponse struct {
	FileIDs *[]hydrusFileID `json:"file_ids"`
}

// hydrusFileID accepts ids sent either as JSON numbers or strings.
type hydrusFileID string

func (id *hydrusFileID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = hydrusFileID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("file id %s is neither a string nor a number", string(data))
	}
	*id = hydrusFileID(n.String())
	return nil
}

// parseHydrusResponse slices the requested page out of file_ids. The search
// endpoint returns no metadata, so every image is marked DegradedFidelity
// and carries placeholder dimensions, rating, score and checksum.
func parseHydrusResponse(d dialect, req pageRequest, body []byte) ([]Image, error) {
	var resp hydrusSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %v", err)
	}
	if resp.FileIDs == nil {
		return nil, errors.New("missing required field \"file_ids\"")
	}
	ids := *resp.FileIDs

	// Compare against the last page before multiplying; huge pages would overflow.
	if len(ids) == 0 || req.page > (len(ids)-1)/req.limit {
		return []Image{}, nil
	}
	start := req.page * req.limit
	end := min(start+req.limit, len(ids))

	images := make([]Image, 0, end-start)
	for i := start; i < end; i++ {
		id := string(ids[i])
		fileURL := hydrusFileURL(req.settings, id)
		images = append(images, Image{
			ID:                 id,
			FileURL:            fileURL,
			SampleURL:          fileURL,
			PreviewURL:         hydrusThumbnailURL(req.settings, id),
			Width:              PlaceholderDimension,
			Height:             PlaceholderDimension,
			SampleWidth:        PlaceholderDimension,
			SampleHeight:       PlaceholderDimension,
			PreviewWidth:       PlaceholderDimension,
			PreviewHeight:      PlaceholderDimension,
			Tags:               []Tag{},
			WebURL:             d.webURL(req.settings, id),
			SafeSearchRating:   RatingUnknown,
			Score:              0,
			MD5:                PlaceholderMD5,
			CreatedAt:          time.Time{},
			SearchPage:         req.page,
			SearchPagePosition: i - start,
			DegradedFidelity:   true,
		})
	}
	return images, nil
}
