package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semfetch/source/weburl"
)

// urlColumnWidth caps the URL column in terminal tables.
const urlColumnWidth = 48

// cell pads or truncates s to exactly width display columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// printSummary writes a per-URL outcome table followed by batch totals.
func printSummary(w io.Writer, batch webfetch.BatchResult) {
	fmt.Fprintf(w, "\n%s  %s  %s\n", cell("URL", urlColumnWidth), cell("RESULT", 16), "DETAIL")
	for _, r := range batch.Successful {
		detail := fmt.Sprintf("%d chars, %dms", r.Metadata.ContentLength, r.Metadata.ResponseTimeMs)
		if r.Metadata.Truncated {
			detail += ", truncated"
		}
		fmt.Fprintf(w, "%s  %s  %s\n", cell(r.Metadata.URL, urlColumnWidth), cell("ok", 16), detail)
	}
	for _, f := range batch.Failed {
		fmt.Fprintf(w, "%s  %s  %s\n", cell(f.URL, urlColumnWidth), cell(f.ErrorCode, 16), f.Error)
	}

	s := batch.Summary
	fmt.Fprintf(w, "\n%d/%d succeeded, %d chars total, avg %.0fms (request %s)\n",
		s.SuccessCount, s.TotalURLs, s.TotalContentSize, s.AverageResponseTimeMs, batch.RequestID)
}

// printVerdicts writes one line per URL with its screening outcome.
func printVerdicts(w io.Writer, urls []string, verdicts []weburl.Verdict) {
	for i, v := range verdicts {
		status := "ok"
		detail := strings.Join(v.Warnings, "; ")
		if !v.Valid {
			status = string(v.Reason)
			detail = v.Message
		}
		line := fmt.Sprintf("%s  %s  %s", cell(urls[i], urlColumnWidth), cell(status, 18), detail)
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
