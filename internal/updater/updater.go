// Package updater checks GitHub releases for a newer noted build and can
// replace the running binary in place. Checks are best-effort: network
// failures report "no update" instead of surfacing an error.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	githubRepo   = "notedaemon/noted"
	checkTimeout = 10 * time.Second
)

// Overridable in tests.
var (
	releaseEndpoint = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	httpClient      = &http.Client{Timeout: checkTimeout}
)

// release mirrors the fields of the GitHub latest-release payload that
// the updater reads.
type release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// CheckResult reports how the running version compares to the latest
// release. Versions carry no leading "v".
type CheckResult struct {
	Current   string
	Latest    string
	Available bool
	URL       string
}

// Check asks GitHub for the latest release and compares it against
// current. A failed check reports no update available.
func Check(current string) CheckResult {
	res := CheckResult{Current: strings.TrimPrefix(current, "v")}
	rel, err := latestRelease(current)
	if err != nil {
		return res
	}
	res.Latest = strings.TrimPrefix(rel.TagName, "v")
	res.URL = rel.HTMLURL
	res.Available = isNewer(res.Current, res.Latest)
	return res
}

func latestRelease(current string) (*release, error) {
	req, err := http.NewRequest(http.MethodGet, releaseEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "noted/"+current)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: fetching latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: GitHub API returned %d", resp.StatusCode)
	}
	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("updater: parsing release: %w", err)
	}
	return &rel, nil
}

// SelfUpdate downloads the release archive for this OS/arch and replaces
// the running executable atomically: the new binary is written next to
// the current one and renamed over it.
func SelfUpdate(current string) error {
	rel, err := latestRelease(current)
	if err != nil {
		return err
	}
	latest := strings.TrimPrefix(rel.TagName, "v")
	if !isNewer(strings.TrimPrefix(current, "v"), latest) {
		return fmt.Errorf("updater: already at latest version (%s)", current)
	}

	name := assetName(latest)
	var url string
	for _, a := range rel.Assets {
		if a.Name == name {
			url = a.BrowserDownloadURL
			break
		}
	}
	if url == "" {
		return fmt.Errorf("updater: no release asset for %s/%s (wanted %s)", runtime.GOOS, runtime.GOARCH, name)
	}

	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("updater: downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("updater: download returned %d", resp.StatusCode)
	}

	bin, err := extractBinary(resp.Body)
	if err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("updater: locating executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("updater: resolving symlinks: %w", err)
	}

	tmp := execPath + ".new"
	if err := os.WriteFile(tmp, bin, 0o755); err != nil {
		return fmt.Errorf("updater: writing new binary: %w", err)
	}
	if err := os.Rename(tmp, execPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("updater: replacing binary: %w", err)
	}
	return nil
}

// extractBinary pulls the noted binary out of a release .tar.gz.
func extractBinary(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("updater: opening archive: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("updater: reading archive: %w", err)
		}
		if filepath.Base(hdr.Name) == "noted" {
			bin, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("updater: reading binary: %w", err)
			}
			return bin, nil
		}
	}
	return nil, fmt.Errorf("updater: noted binary not found in archive")
}

// assetName is the goreleaser-style archive name for this OS and arch.
func assetName(version string) string {
	return fmt.Sprintf("noted_%s_%s_%s.tar.gz", version, runtime.GOOS, runtime.GOARCH)
}

// isNewer compares dotted versions numerically, part by part. Empty and
// "dev" current versions never see updates.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur := strings.Split(current, ".")
	lat := strings.Split(latest, ".")
	for i := 0; i < 3; i++ {
		c, l := versionPart(cur, i), versionPart(lat, i)
		if l != c {
			return l > c
		}
	}
	return false
}

// versionPart returns the leading integer of parts[i], 0 when absent or
// non-numeric. "3rc1" counts as 3 so pre-release tags still compare.
func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n := 0
	for _, ch := range parts[i] {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
