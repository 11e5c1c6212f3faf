package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semfetch/source/webfetch"
)

func fetchCmd(flags *globalFlags) *cobra.Command {
	var (
		opts        webfetch.FetchOptions
		noMarkdown  bool
		noMetadata  bool
		asJSON      bool
		headerPairs []string
	)

	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetch URLs and print their content blocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, logger, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if noMarkdown {
				opts.ConvertToMarkdown = boolPtr(false)
			}
			if noMetadata {
				opts.IncludeMetadata = boolPtr(false)
			}
			if opts.Headers, err = parseHeaders(headerPairs); err != nil {
				return err
			}

			fetcher := webfetch.NewFetcher(loaded.cfg.Fetch, webfetch.WithLogger(logger))
			coordinator := webfetch.NewCoordinator(fetcher, loaded.cfg.Fetch, webfetch.WithCoordinatorLogger(logger))

			result, err := coordinator.ProcessURLs(cmd.Context(), args, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, strings.Join(result.Contents, "\n\n---\n\n"))
				printSummary(cmd.ErrOrStderr(), result.Batch)
			}

			if result.Batch.Summary.SuccessCount == 0 {
				return fmt.Errorf("all %d URLs failed", result.Batch.Summary.TotalURLs)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.TimeoutMs, "timeout-ms", 0, "Per-attempt timeout in milliseconds (default from config)")
	cmd.Flags().IntVar(&opts.MaxContentLength, "max-bytes", 0, "Maximum body size in bytes (default from config)")
	cmd.Flags().StringSliceVar(&opts.AllowedDomains, "allow", nil, "Restrict to these domain patterns for this request")
	cmd.Flags().StringVar(&opts.UserAgent, "user-agent", "", "User-Agent header override")
	cmd.Flags().BoolVar(&opts.ExtractMainContent, "main-content", false, "Keep only the main article content")
	cmd.Flags().StringArrayVarP(&headerPairs, "header", "H", nil, "Extra request header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "Return cleaned text instead of Markdown")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Omit title and description lines from content blocks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

// parseHeaders turns "Name: value" pairs into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", pair)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func boolPtr(b bool) *bool { return &b }
