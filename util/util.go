package util

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const KiB = 1024
const MiB = KiB * 1024
const GiB = MiB * 1024

func FormatBytes(bytes int64) string {
	if bytes < KiB {
		return fmt.Sprintf("%dB", bytes)
	} else if bytes < MiB {
		return fmt.Sprintf("%.1fKiB", float64(bytes)/KiB)
	} else if bytes < GiB {
		return fmt.Sprintf("%.1fMiB", float64(bytes)/MiB)
	} else {
		return fmt.Sprintf("%.1fGiB", float64(bytes)/GiB)
	}
}

// DownloadContent downloads the content from a URL and returns it, with the
// content type from the response's Content-Type header.
func DownloadContent(ctx context.Context, client *http.Client, url *url.URL) (body []byte, ct string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to download page")
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", errors.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	ct, _, err = mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to parse content type")
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read page body")
	}

	return
}

// NormalizeSiteURL prefixes bare domains with https://, matching how sites
// are listed in the bulk CSV.
func NormalizeSiteURL(site string) string {
	if strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
		return site
	}
	return "https://" + site
}
