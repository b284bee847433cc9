package ui

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matthieugras/czds-client/internal/api"
	"github.com/matthieugras/czds-client/internal/zone"
)

// maxListedErrors caps the errors repeated in the final summary
const maxListedErrors = 10

// Reporter prints one line per zone result and a final summary
type Reporter struct {
	out   io.Writer
	mu    sync.Mutex
	start time.Time
	total int

	completed  int
	failed     int
	skipped    int
	totalBytes int64
	errors     []string
}

// NewReporter creates a reporter writing to out
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, start: time.Now()}
}

// Start records the number of zone files and prints the header
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
	r.total = total
	fmt.Fprintf(r.out, "%s\n\nDownloading %d zone files...\n\n", TitleStyle.Render(" CZDS Zone Downloader "), r.total)
}

// Result prints a single zone result
func (r *Reporter) Result(res zone.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := res.TLD
	if name == "" {
		name = res.Link
	}

	switch {
	case res.Err != nil:
		r.failed++
		r.errors = append(r.errors, fmt.Sprintf("%s: %v", name, res.Err))
		fmt.Fprintln(r.out, ErrorStyle.Render(fmt.Sprintf("✗ %s: %s", name, truncate(res.Err.Error(), 80))))
	case res.Skipped:
		r.skipped++
		fmt.Fprintln(r.out, SkippedStyle.Render(fmt.Sprintf("⊘ %s: %s", name, res.SkipReason)))
	default:
		r.completed++
		r.totalBytes += res.Bytes
		line := fmt.Sprintf("✓ %s: %s (%s)", name, FormatBytes(res.Bytes), res.Duration.Round(time.Millisecond))
		if res.Attempts > 1 {
			line += fmt.Sprintf(" after %d attempts", res.Attempts)
		}
		fmt.Fprintln(r.out, SuccessStyle.Render(line))
	}
}

// Backoff prints a retry notice
func (r *Reporter) Backoff(link string, attempt int, wait time.Duration, err error) {
	name := zone.TLDFromLink(link)
	if name == "" {
		name = link
	}
	fmt.Fprintln(r.out, WarningStyle.Render(
		fmt.Sprintf("⚠ %s: attempt %d failed (%s), backing off for %s", name, attempt, truncate(err.Error(), 60), wait.Round(time.Millisecond))))
}

// Diagnostic prints a non-fatal probe diagnostic
func (r *Reporter) Diagnostic(d api.Diagnostic) {
	fmt.Fprintln(r.out, MutedStyle.Render(fmt.Sprintf("  %s %s: %d %s", d.Method, d.URL, d.StatusCode, d.Message)))
}

// Fatal prints a banner for an error that stopped the batch
func (r *Reporter) Fatal(err error) {
	fmt.Fprintln(r.out, "\n"+FatalStyle.Render(fmt.Sprintf("FATAL ERROR: %v", err)))
}

// Summary prints the final totals
func (r *Reporter) Summary() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	elapsed := time.Since(r.start).Round(time.Second)

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render(" Download Complete ") + "\n\n")

	b.WriteString(fmt.Sprintf("Total zones:    %d\n", r.total))
	b.WriteString(fmt.Sprintf("Completed:      %s\n", SuccessStyle.Render(fmt.Sprintf("%d", r.completed))))
	b.WriteString(fmt.Sprintf("Failed:         %s\n", ErrorStyle.Render(fmt.Sprintf("%d", r.failed))))
	b.WriteString(fmt.Sprintf("Skipped:        %s\n", SkippedStyle.Render(fmt.Sprintf("%d", r.skipped))))
	b.WriteString(fmt.Sprintf("Downloaded:     %s\n", HighlightStyle.Render(FormatBytes(r.totalBytes))))
	b.WriteString(fmt.Sprintf("Duration:       %s\n", elapsed))

	if len(r.errors) > maxListedErrors {
		b.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("Errors: %d (showing first %d)", len(r.errors), maxListedErrors)) + "\n")
	} else if len(r.errors) > 0 {
		b.WriteString("\n" + ErrorStyle.Render("Errors:") + "\n")
	}
	for _, e := range r.errors[:min(len(r.errors), maxListedErrors)] {
		b.WriteString(fmt.Sprintf("  • %s\n", e))
	}

	fmt.Fprint(r.out, b.String())
}

// Failed returns the number of failed zones
func (r *Reporter) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// PrintProbe renders the status line and headers of a HEAD response
func PrintProbe(out io.Writer, url string, resp *http.Response) {
	var b strings.Builder
	style := SuccessStyle
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		style = WarningStyle
	}
	b.WriteString(HighlightStyle.Render(url) + "\n")
	b.WriteString(style.Render(resp.Status) + "\n")

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s %s\n", MutedStyle.Render(k+":"), strings.Join(resp.Header[k], ", ")))
	}
	fmt.Fprintln(out, BoxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// PrintLinks prints one link per line, prefixed with its TLD
func PrintLinks(out io.Writer, links []string) {
	for _, link := range links {
		fmt.Fprintf(out, "%-20s %s\n", HighlightStyle.Render(zone.TLDFromLink(link)), link)
	}
	fmt.Fprintln(out, MutedStyle.Render(fmt.Sprintf("%d zone files", len(links))))
}

// FormatBytes renders n using binary units
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// truncate shortens s to at most n runes, ending in "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
