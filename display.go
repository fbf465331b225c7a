package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"

	"nori/backends"
)

const maxDisplayTags = 24

// DisplayOptions control how a page of images is printed
type DisplayOptions struct {
	Service string
	Expand  bool
	NoColor bool
}

func printImages(w io.Writer, result *backends.SearchResult, opts DisplayOptions) {
	if opts.NoColor {
		color.NoColor = true
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)
	bold := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Query: %s  %s\n\n",
		bold.Sprint(queryString(result.Query())),
		dim.Sprintf("[%s, page %d]", opts.Service, result.CurrentOffset()+1),
	)

	images := result.Images()
	for i, img := range images {
		fmt.Fprintf(w, " %s %s %s %s\n",
			cyan.Sprintf("%3d.", i+1),
			green.Sprintf("#%s", img.ID),
			ratingLabel(img.SafeSearchRating),
			yellow.Sprintf("[%s]", extractDomain(img.FileURL)),
		)

		if img.DegradedFidelity {
			fmt.Fprintf(w, "      %s\n", dim.Sprint("no metadata available"))
		} else {
			fmt.Fprintf(w, "      %s\n", dim.Sprintf("%dx%d  score %d  %s",
				img.Width, img.Height, img.Score, img.CreatedAt.Format("2006-01-02")))
		}

		if len(img.Tags) > 0 {
			for _, line := range wrapText(formatTags(img.Tags), getTerminalWidth()-6) {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}

		if opts.Expand {
			fmt.Fprintf(w, "      %s\n", img.FileURL)
			if img.WebURL != img.FileURL {
				fmt.Fprintf(w, "      %s\n", img.WebURL)
			}
		}

		fmt.Fprintln(w)
	}
}

func queryString(tags []backends.Tag) string {
	if len(tags) == 0 {
		return "(everything)"
	}
	return backends.TagsString(tags)
}

func ratingLabel(r backends.SafeSearchRating) string {
	switch r {
	case backends.RatingSafe:
		return color.GreenString("[s]")
	case backends.RatingQuestionable:
		return color.YellowString("[q]")
	case backends.RatingExplicit:
		return color.RedString("[e]")
	default:
		return color.HiBlackString("[?]")
	}
}

// formatTags lists tags with artists, copyrights and characters first, and
// truncates long lists.
func formatTags(tags []backends.Tag) string {
	ordered := make([]string, 0, len(tags))
	for _, t := range []backends.TagType{backends.TagArtist, backends.TagCopyright, backends.TagCharacter, backends.TagGeneral, backends.TagAmbiguous} {
		for _, tag := range tags {
			if tag.Type == t {
				ordered = append(ordered, tag.Name)
			}
		}
	}
	if len(ordered) > maxDisplayTags {
		return strings.Join(ordered[:maxDisplayTags], " ") + fmt.Sprintf(" (+%d)", len(ordered)-maxDisplayTags)
	}
	return strings.Join(ordered, " ")
}

func extractDomain(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	parts := strings.Split(urlStr, "//")
	if len(parts) > 1 {
		return strings.Split(parts[1], "/")[0]
	}
	return strings.Split(parts[0], "/")[0]
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" " + word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

func getTerminalWidth() int {
	return 80
}

func printImageURLs(w io.Writer, img backends.Image) {
	fmt.Fprintf(w, "File:    %s\n", img.FileURL)
	fmt.Fprintf(w, "Sample:  %s\n", img.SampleURL)
	fmt.Fprintf(w, "Preview: %s\n", img.PreviewURL)
	if img.WebURL != img.FileURL {
		fmt.Fprintf(w, "Post:    %s\n", img.WebURL)
	}
	if img.ParentID != nil {
		fmt.Fprintf(w, "Parent:  %s\n", *img.ParentID)
	}
}

// jsonPage is the --json output of one search page
type jsonPage struct {
	Service string           `json:"service"`
	Query   string           `json:"query"`
	Page    int              `json:"page"`
	Images  []backends.Image `json:"images"`
}

func printJSONResults(w io.Writer, result *backends.SearchResult, service string) error {
	output := jsonPage{
		Service: service,
		Query:   backends.TagsString(result.Query()),
		Page:    result.CurrentOffset(),
		Images:  result.Images(),
	}
	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}

func printServices(w io.Writer, cfg *Config, mgr *backends.Manager) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	configured := make(map[string]bool)
	for _, name := range mgr.ConfiguredServices() {
		configured[name] = true
	}

	for _, name := range mgr.AvailableServices() {
		client, _ := mgr.GetClient(name)
		settings := client.Settings()

		marker := "  "
		if name == cfg.Service {
			marker = "* "
		}
		status := color.GreenString("ready")
		if !configured[name] {
			status = color.YellowString("missing access key")
		}

		fmt.Fprintf(w, "%s%s %s %s\n", marker, bold.Sprint(name), dim.Sprintf("(%s)", settings.APIType), status)
		fmt.Fprintf(w, "    %s\n", settings.Endpoint)
		if q := client.DefaultQuery(); q != "" {
			fmt.Fprintf(w, "    %s\n", dim.Sprintf("default query: %s", q))
		}
	}
	if len(cfg.FallbackServices) > 0 {
		fmt.Fprintf(w, "\nFallbacks: %s\n", strings.Join(cfg.FallbackServices, ", "))
	}
}

// printServiceTOML prints a [[services]] table ready to paste into the
// config file.
func printServiceTOML(w io.Writer, settings backends.Settings) error {
	return toml.NewEncoder(w).Encode(struct {
		Services []backends.Settings `toml:"services"`
	}{Services: []backends.Settings{settings}})
}
