package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/semaphore"

	"github.com/field-guardian/field-guardian-api/internal/cache"
	"github.com/field-guardian/field-guardian-api/internal/faults"
	"github.com/field-guardian/field-guardian-api/internal/properties"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

const (
	requestRetries = 3
	retryDelay     = 2 * time.Second
	requestTimeout = 60 * time.Second

	// Outbound calls are throttled to stay inside the archive's rate
	// limits; independent pipeline requests share this budget.
	maxConcurrentRequests = 4

	searchCacheMaxAge = 6 * time.Hour
)

// Config holds everything the client needs up front. Credentials are
// validated once at construction; there is no ad-hoc availability flag.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
	ScenesDir    string
}

// ConfigFromEnv reads the archive settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		ClientID:     properties.ArchiveClientID(),
		ClientSecret: properties.ArchiveClientSecret(),
		TokenURL:     properties.ArchiveTokenURL(),
		APIURL:       properties.ArchiveAPIURL(),
		ScenesDir:    properties.ScenesPath(),
	}
}

// Client is the HTTP implementation of Archive. Immutable after New.
type Client struct {
	apiURL      string
	scenesDir   string
	httpClient  *http.Client
	sem         *semaphore.Weighted
	searchCache *cache.FileCache[[]SceneRef]
}

func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" || cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: missing ARCHIVE_CLIENT_ID, ARCHIVE_CLIENT_SECRET, ARCHIVE_TOKEN_URL or ARCHIVE_API_URL", faults.ErrServiceUnavailable)
	}

	oauthCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	httpClient := oauthCfg.Client(context.Background())
	httpClient.Timeout = requestTimeout

	godal.RegisterInternalDrivers()

	return &Client{
		apiURL:      cfg.APIURL,
		scenesDir:   cfg.ScenesDir,
		httpClient:  httpClient,
		sem:         semaphore.NewWeighted(maxConcurrentRequests),
		searchCache: cache.NewFileCache[[]SceneRef]("scene_search", searchCacheMaxAge),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %v", err)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrServiceUnavailable, err)
	}
	defer c.sem.Release(1)

	var lastErr error
	for attempt := 1; attempt <= requestRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			fmt.Printf("Archive request %s attempt %d failed: %v\n", path, attempt, err)
			if ctx.Err() != nil {
				break
			}
			time.Sleep(retryDelay)
			continue
		}

		content, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("failed to read response body: %v", readErr)
			}
			return content, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: unauthorized, check archive credentials", faults.ErrServiceUnavailable)
		default:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(content))
			fmt.Printf("Archive request %s attempt %d failed: %v\n", path, attempt, lastErr)
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("%w: request %s failed after %d attempts: %v", faults.ErrServiceUnavailable, path, requestRetries, lastErr)
}

type searchRequest struct {
	BBox          [4]float64 `json:"bbox"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	MaxCloudCover float64    `json:"maxCloudCoverPercent"`
	Collection    string     `json:"collection"`
}

type searchResponse struct {
	Scenes []SceneRef `json:"scenes"`
}

func (c *Client) Search(ctx context.Context, bounds orb.Bound, start, end time.Time, maxCloudPct float64) ([]SceneRef, error) {
	key := c.searchCache.GenerateKey(bounds.Min, bounds.Max, start.Format("2006-01-02"), end.Format("2006-01-02"), maxCloudPct)
	if scenes, ok := c.searchCache.Get(key); ok {
		return scenes, nil
	}

	payload := searchRequest{
		BBox:          [4]float64{bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1]},
		From:          start.Format(time.RFC3339),
		To:            end.Format(time.RFC3339),
		MaxCloudCover: maxCloudPct,
		Collection:    "sentinel-2-l2a",
	}

	content, err := c.post(ctx, "/catalog/search", payload)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %v", err)
	}

	scenes := result.Scenes
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Time.Before(scenes[j].Time) })

	if err := c.searchCache.Set(key, scenes); err != nil {
		fmt.Printf("Failed to cache scene search: %v\n", err)
	}
	return scenes, nil
}

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	// Clamp to the archive's allowed output range
	if pixels > 2500 {
		return 2500
	}
	return int(pixels)
}

func (c *Client) FetchImage(ctx context.Context, ref SceneRef, bounds orb.Bound) (*vi.Image, error) {
	cacheFile := filepath.Join(c.scenesDir, fmt.Sprintf("%s_%s.tif", ref.ID, c.searchCache.GenerateKey(bounds.Min, bounds.Max)))
	if _, err := os.Stat(cacheFile); err == nil {
		return decodeScene(cacheFile, ref)
	}

	width := calculatePixels(bounds.Max[0]-bounds.Min[0], 10)
	height := calculatePixels(bounds.Max[1]-bounds.Min[1], 10)

	payload := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"bbox": [4]float64{bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1]},
			},
			"data": []map[string]any{
				{
					"type":    "sentinel-2-l2a",
					"sceneId": ref.ID,
				},
			},
		},
		"output": map[string]any{
			"width":  width,
			"height": height,
			"responses": []map[string]any{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"bands": vi.CollectionBands,
	}

	content, err := c.post(ctx, "/process", payload)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.scenesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scenes directory: %v", err)
	}
	if err := os.WriteFile(cacheFile, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write scene file: %v", err)
	}

	return decodeScene(cacheFile, ref)
}

type thumbnailResponse struct {
	URL string `json:"url"`
}

func (c *Client) ThumbnailURL(ctx context.Context, ref SceneRef, bounds orb.Bound, viType vi.Type) (string, error) {
	vis := vi.Visualization(viType)
	payload := map[string]any{
		"sceneId":    ref.ID,
		"bbox":       [4]float64{bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1]},
		"index":      string(viType),
		"dimensions": 512,
		"format":     "png",
		"min":        vis.Min,
		"max":        vis.Max,
		"palette":    vis.Palette,
	}

	content, err := c.post(ctx, "/thumbnail", payload)
	if err != nil {
		return "", err
	}

	var result thumbnailResponse
	if err := json.Unmarshal(content, &result); err != nil {
		return "", fmt.Errorf("failed to parse thumbnail response: %v", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: archive returned no thumbnail URL", faults.ErrOverlayGeneration)
	}
	return result.URL, nil
}
