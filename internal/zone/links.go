package zone

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/matthieugras/czds-client/internal/apierr"
	"github.com/matthieugras/czds-client/internal/config"
	"github.com/matthieugras/czds-client/internal/logging"
)

// LinksPath is the data endpoint listing the zone files the user may download
const LinksPath = "czds/downloads/links"

// maxLinksBytes bounds the links document
const maxLinksBytes = 8 * 1024 * 1024

// Links returns the absolute URLs of all zone files the account is approved for
func (d *Downloader) Links(ctx context.Context) ([]string, error) {
	resp, err := d.client.Fetch(ctx, d.linksURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodedBody(resp)
	if err != nil {
		return nil, apierr.Protocol(resp.StatusCode, d.linksURL, fmt.Sprintf("failed to decode links response: %v", err))
	}

	var links []string
	if err := json.NewDecoder(io.LimitReader(body, maxLinksBytes)).Decode(&links); err != nil {
		return nil, apierr.Protocol(resp.StatusCode, d.linksURL, fmt.Sprintf("failed to parse links response: %v", err))
	}

	logging.Info("Approved zone files: %d", len(links))
	return links, nil
}

// decodedBody undoes gzip content coding, which the transport leaves in place
func decodedBody(resp *http.Response) (io.Reader, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, nil
	}
	return gzip.NewReader(resp.Body)
}

// TLDFromLink derives the TLD from a link like https://host/czds/downloads/com.zone.
// Returns "" when the link does not end in a .zone file.
func TLDFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	tld, ok := strings.CutSuffix(base, ".zone")
	if !ok || tld == "" {
		return ""
	}
	return strings.ToLower(tld)
}

// FilterLinks keeps the links whose TLD is in tlds (case-insensitive).
// An empty selection keeps every link.
func FilterLinks(links, tlds []string) []string {
	tlds = config.NormalizeZones(tlds)
	if len(tlds) == 0 {
		return links
	}

	wanted := make(map[string]bool, len(tlds))
	for _, t := range tlds {
		wanted[t] = true
	}

	var filtered []string
	for _, link := range links {
		if wanted[TLDFromLink(link)] {
			filtered = append(filtered, link)
		}
	}
	return filtered
}
