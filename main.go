package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nori/backends"
)

const version = "2.0.0"

var config *Config

type searchOptions struct {
	Service  string
	Page     int
	JSON     bool
	Expand   bool
	NoPrompt bool
}

func main() {
	var err error
	config, err = loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nori",
		Short:        "Image board search from the command line",
		Long:         "nori searches Danbooru 1.x compatible boards, E621 and Hydrus Network clients.",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", config.Debug, "show debug output")
	rootCmd.PersistentFlags().BoolVar(&config.NoColor, "nocolor", config.NoColor, "disable colored output")
	rootCmd.PersistentFlags().Float64Var(&config.Timeout, "timeout", config.Timeout, "HTTP request timeout in seconds")

	rootCmd.AddCommand(
		newSearchCmd(),
		newDetectCmd(),
		newServicesCmd(),
		newPageCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// setup builds the logger and the service manager from the loaded config.
// The returned func releases both.
func setup(stderr io.Writer) (*app, func(), error) {
	logger, closeLog := newLogger(config, stderr)
	a, err := newApp(config, logger)
	if err != nil {
		closeLog()
		return nil, func() {}, err
	}
	return a, func() {
		a.Close()
		closeLog()
	}, nil
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [tags...]",
		Short: "Search for images by tag",
		Long: `Search the primary service, falling back to fallback_services when it
fails. Without tags the service's default query is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Service, "service", "s", "", "search this service only, without fallback")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "page to start on")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output search results in JSON format")
	cmd.Flags().BoolVarP(&opts.Expand, "expand", "x", config.Expand, "show file and post URLs")
	cmd.Flags().BoolVar(&opts.NoPrompt, "np", false, "just search and exit, do not prompt")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string, opts *searchOptions) error {
	// Ensure config file exists for actual searches
	if err := ensureConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
	}

	a, cleanup, err := setup(cmd.ErrOrStderr())
	defer cleanup()
	if err != nil {
		return err
	}

	tags := strings.Join(args, " ")
	if len(args) == 0 {
		tags = defaultQuery(a.manager, opts.Service)
	}
	if opts.Page < 1 {
		return fmt.Errorf("page must be 1 or greater")
	}

	ctx := cmd.Context()
	s := newSession(a, opts.Service, tags)
	if err := s.load(ctx, opts.Page-1); err != nil {
		return err
	}
	recordHistory(a, s)

	out := cmd.OutOrStdout()
	if opts.JSON {
		return printJSONResults(out, s.result, s.used)
	}

	showPage(out, s, opts)
	if opts.NoPrompt {
		return nil
	}
	return handleInteractiveSession(ctx, cmd.InOrStdin(), out, s, opts)
}

func defaultQuery(mgr *backends.Manager, service string) string {
	if service != "" {
		if client, ok := mgr.GetClient(service); ok {
			return client.DefaultQuery()
		}
		return ""
	}
	if primary := mgr.Primary(); primary != nil {
		return primary.DefaultQuery()
	}
	return ""
}

func recordHistory(a *app, s *session) {
	if err := appendHistory(a.config, s.used, s.tags); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to write history")
	}
}

func showPage(w io.Writer, s *session, opts *searchOptions) {
	if s.result.Len() == 0 {
		fmt.Fprintf(w, "No images found on page %d.\n", s.page+1)
		return
	}
	printImages(w, s.result, DisplayOptions{
		Service: s.used,
		Expand:  opts.Expand,
		NoColor: config.NoColor,
	})
}

func handleInteractiveSession(ctx context.Context, in io.Reader, out io.Writer, s *session, opts *searchOptions) error {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "nori (? for help): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		input = strings.TrimSpace(input)

		switch {
		case input == "":
			continue

		case input == "q" || input == "quit" || input == "exit":
			return nil

		case input == "?":
			printHelp(out)

		case input == "n": // Next page
			loadAndShow(ctx, out, s, s.page+1, opts)

		case input == "p": // Previous page
			if s.page == 0 {
				fmt.Fprintln(out, "Already on the first page.")
				continue
			}
			loadAndShow(ctx, out, s, s.page-1, opts)

		case input == "f": // First page
			loadAndShow(ctx, out, s, 0, opts)

		case input == "x": // Toggle expand URLs
			opts.Expand = !opts.Expand
			showPage(out, s, opts)

		case strings.HasPrefix(input, "s "): // Switch service
			name := strings.TrimSpace(input[2:])
			if _, ok := s.app.manager.GetClient(name); !ok {
				fmt.Fprintf(out, "Unknown service '%s'. Available: %s\n", name, strings.Join(s.app.manager.AvailableServices(), ", "))
				continue
			}
			s.service, s.used = name, ""
			if loadAndShow(ctx, out, s, 0, opts) {
				recordHistory(s.app, s)
			}

		case strings.HasPrefix(input, "v "): // View post page
			img, ok := imageAt(out, s, input[2:])
			if !ok {
				continue
			}
			if img.DegradedFidelity {
				// No post page exists, the web URL is the file itself.
				printImageURLs(out, img)
				continue
			}
			page, err := fetchPost(ctx, s.app.transport, img.WebURL, s.app.config.UserAgent, s.app.config.timeout())
			if err != nil {
				fmt.Fprintf(out, "Error viewing post: %v\n", err)
				continue
			}
			fmt.Fprintln(out, page)

		case strings.HasPrefix(input, "o "): // Open in browser
			if img, ok := imageAt(out, s, input[2:]); ok {
				if err := openURL(img.WebURL); err != nil {
					fmt.Fprintf(out, "Error opening URL: %v\n", err)
				}
			}

		case strings.HasPrefix(input, "j "): // Show JSON for image
			if img, ok := imageAt(out, s, input[2:]); ok {
				single := backends.NewSearchResult([]backends.Image{img}, s.result.Query(), s.page)
				if err := printJSONResults(out, single, s.used); err != nil {
					fmt.Fprintf(out, "Error formatting JSON: %v\n", err)
				}
			}

		default:
			// Check if it's a number (show image URLs)
			if _, err := strconv.Atoi(input); err == nil {
				if img, ok := imageAt(out, s, input); ok {
					printImageURLs(out, img)
				}
				continue
			}

			// Treat as new query
			s.tags = input
			if s.service == "" {
				s.used = ""
			}
			if loadAndShow(ctx, out, s, 0, opts) {
				recordHistory(s.app, s)
			}
		}
	}
}

func loadAndShow(ctx context.Context, out io.Writer, s *session, page int, opts *searchOptions) bool {
	if err := s.load(ctx, page); err != nil {
		fmt.Fprintf(out, "Search error: %v\n", err)
		return false
	}
	showPage(out, s, opts)
	return true
}

func imageAt(out io.Writer, s *session, indexStr string) (backends.Image, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(indexStr))
	if err != nil {
		fmt.Fprintln(out, "Invalid index specified.")
		return backends.Image{}, false
	}
	img, err := s.image(index)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return backends.Image{}, false
	}
	return img, true
}

func printHelp(w io.Writer) {
	help := `
- Enter tags to start a new search.
- Type 'n', 'p', and 'f' to navigate to the next, previous and first page of results.
- Type the index (1, 2, 3, etc) to show the file, sample and post URLs of an image.
- Type 'v' plus the index ('v 1') to view the post page as text.
- Type 'o' plus the index ('o 1') to open the post page in a browser.
- Type 'j' plus the index ('j 1') to show the JSON for an image.
- Type 's' plus a service name ('s e621') to search another service.
- Type 'x' to toggle showing image URLs.
- Type 'q', 'quit', or 'exit' to exit the program.
- Type '?' for this help message.
`
	fmt.Fprint(w, help)
}

func newDetectCmd() *cobra.Command {
	var (
		timeout float64
		name    string
		apiType string
	)

	cmd := &cobra.Command{
		Use:   "detect <url>",
		Short: "Detect which API a board speaks",
		Long: `Probe a board for the Hydrus and Danbooru 1.x APIs and print a [[services]]
table for the config file. E621 cannot be detected and must be configured by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := newLogger(config, cmd.ErrOrStderr())
			defer closeLog()

			endpoint := args[0]
			if !strings.Contains(endpoint, "://") {
				endpoint = "https://" + endpoint
			}
			probeTimeout := time.Duration(timeout * float64(time.Second))
			transport := backends.NewHTTPTransport()
			ctx := cmd.Context()

			var (
				detected backends.APIType
				found    string
				ok       bool
			)
			if apiType != "" {
				t, err := backends.ParseAPIType(apiType)
				if err != nil {
					return err
				}
				detected = t
				found, ok = backends.DetectService(ctx, transport, t, endpoint, probeTimeout)
			} else {
				detected, found, ok = backends.DetectAPIType(ctx, transport, endpoint, probeTimeout)
			}
			logger.Debug().Str("endpoint", endpoint).Bool("detected", ok).Msg("Service detection finished")

			if !ok {
				return fmt.Errorf("no supported API detected at %s", endpoint)
			}

			if name == "" {
				name = extractDomain(found)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Detected %s at %s\n\n", detected, found)
			settings := backends.Settings{APIType: detected, Name: name, Endpoint: found}
			if detected == backends.APIHydrus {
				settings.Password = "<access key>"
			}
			return printServiceTOML(out, settings)
		},
	}

	cmd.Flags().Float64Var(&timeout, "probe-timeout", backends.DefaultProbeTimeout.Seconds(), "timeout for each probe in seconds")
	cmd.Flags().StringVar(&name, "name", "", "service name for the generated config (default: host name)")
	cmd.Flags().StringVar(&apiType, "type", "", fmt.Sprintf("only probe one API type (%s)", strings.Join(backends.APITypeNames(), ", ")))
	return cmd
}

func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(cmd.ErrOrStderr())
			defer cleanup()
			if err != nil {
				return err
			}
			printServices(cmd.OutOrStdout(), config, a.manager)
			return nil
		},
	}
}

func newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <url>",
		Short: "Show a post page as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(cmd.ErrOrStderr())
			defer cleanup()
			if err != nil {
				return err
			}
			page, err := fetchPost(cmd.Context(), a.transport, args[0], config.UserAgent, config.timeout())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), page)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show search history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll {
				return clearHistory(cmd.OutOrStdout())
			}
			return printHistory(cmd.OutOrStdout(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the search history")
	return cmd
}

func openURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("explorer", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}
