package footcast

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/richard-senior/footcast/internal/logger"
	"github.com/richard-senior/footcast/pkg/transport"
)

// season file links look like mmz4281/2324/E0.csv
var seasonLinkPattern = regexp.MustCompile(`mmz4281/(\d{4})/([A-Z]+\d)\.csv$`)

// SeasonLink is one downloadable season file
type SeasonLink struct {
	URL      string
	Code     string // football-data season code, e.g. 2324
	Season   int    // season tag, e.g. 2024
	Division string
}

// Downloader fetches football-data.co.uk season files into the raw directory
type Downloader struct {
	client   transport.Getter
	indexURL string
	rawDir   string
}

func NewDownloader(client transport.Getter, indexURL, rawDir string) *Downloader {
	return &Downloader{client: client, indexURL: indexURL, rawDir: rawDir}
}

// ListSeasonLinks scrapes the league index page for season csv links in the given divisions
func (d *Downloader) ListSeasonLinks(ctx context.Context, divisions []string) ([]SeasonLink, error) {
	body, err := d.client.Get(ctx, d.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index %s: %w", d.indexURL, err)
	}
	base, err := url.Parse(d.indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index url %s: %w", d.indexURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index html: %w", err)
	}

	wanted := make(map[string]bool, len(divisions))
	for _, div := range divisions {
		wanted[div] = true
	}

	seen := make(map[string]bool)
	var links []SeasonLink
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := seasonLinkPattern.FindStringSubmatch(href)
		if m == nil || !wanted[m[2]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		season, err := ParseSeason(m[1])
		if err != nil {
			return
		}
		links = append(links, SeasonLink{URL: abs, Code: m[1], Season: season, Division: m[2]})
	})

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Season != links[j].Season {
			return links[i].Season > links[j].Season
		}
		return links[i].Division < links[j].Division
	})
	return links, nil
}

// LatestSeasons keeps only links belonging to the n most recent seasons
func LatestSeasons(links []SeasonLink, n int) []SeasonLink {
	seasons := make(map[int]bool)
	var out []SeasonLink
	for _, l := range links {
		if !seasons[l.Season] {
			if len(seasons) == n {
				continue
			}
			seasons[l.Season] = true
		}
		out = append(out, l)
	}
	return out
}

// Download fetches the latest n seasons of the given divisions into rawDir/<code>/<division>.csv.
// Files of completed seasons already on disk are left alone, the current season is refreshed.
func (d *Downloader) Download(ctx context.Context, divisions []string, n int) ([]string, error) {
	links, err := d.ListSeasonLinks(ctx, divisions)
	if err != nil {
		return nil, err
	}
	links = LatestSeasons(links, n)
	if len(links) == 0 {
		return nil, fmt.Errorf("no season files for %v found at %s", divisions, d.indexURL)
	}
	latest := links[0].Season

	var written []string
	for _, link := range links {
		path := filepath.Join(d.rawDir, link.Code, link.Division+".csv")
		if _, err := os.Stat(path); err == nil && link.Season != latest {
			logger.Debug("Season file already cached", path)
			continue
		}

		logger.Info("Fetching season file", link.URL)
		data, err := d.client.Get(ctx, link.URL, nil)
		if err != nil {
			return written, fmt.Errorf("failed to fetch %s: %w", link.URL, err)
		}
		if _, _, err := ReadSeasonCSV(data); err != nil {
			logger.Warn("Discarding unusable season file", link.URL, err)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	logger.Info("Downloaded season files", len(written))
	return written, nil
}
