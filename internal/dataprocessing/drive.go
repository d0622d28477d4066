package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// driveFetchTimeout bounds the download of a shared incident file.
const driveFetchTimeout = 120 * time.Second

// ParseDriveLink extracts the file ID from a Google Drive sharing link.
// Accepts both the "/d/FILEID/" sharing form and the direct "?id=FILEID" form.
func ParseDriveLink(link string) (string, error) {
	switch {
	case strings.Contains(link, "id="):
		id := link[strings.LastIndex(link, "id=")+len("id="):]
		if i := strings.IndexAny(id, "&/"); i >= 0 {
			id = id[:i]
		}
		if id == "" {
			return "", fmt.Errorf("empty file ID in drive link")
		}
		return id, nil
	case strings.Contains(link, "/d/"):
		rest := link[strings.Index(link, "/d/")+len("/d/"):]
		if i := strings.IndexAny(rest, "/?"); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			return "", fmt.Errorf("empty file ID in drive link")
		}
		return rest, nil
	}
	return "", fmt.Errorf("invalid Google Drive link format: %s", link)
}

// FetchDriveCSV downloads a publicly shared file from Google Drive via the
// direct-download endpoint. No auth: the source dashboard only ever pointed at
// public share links.
func FetchDriveCSV(ctx context.Context, link string) ([]byte, error) {
	fileID, err := ParseDriveLink(link)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, driveFetchTimeout)
	defer cancel()

	url := fmt.Sprintf("https://drive.google.com/uc?id=%s", fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build drive request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch drive file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drive download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive response: %w", err)
	}
	return data, nil
}
