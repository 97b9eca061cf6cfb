package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GraphMediaFetcher downloads WhatsApp attachments through the Graph API:
// first a metadata lookup by media ID, then the binary download from the URL
// the lookup returns. Both calls carry the bearer token.
type GraphMediaFetcher struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewGraphMediaFetcher creates a media fetcher against baseURL.
func NewGraphMediaFetcher(baseURL, token string) *GraphMediaFetcher {
	return &GraphMediaFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// Fetch retrieves the attachment for mediaID. The caller owns the returned
// body and must close it.
func (g *GraphMediaFetcher) Fetch(ctx context.Context, mediaID string) (*FetchedMedia, error) {
	meta, err := g.lookup(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media %s: %w", mediaID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("media download for %s returned status %d", mediaID, resp.StatusCode)
	}

	return &FetchedMedia{
		Body:     resp.Body,
		MimeType: meta.MimeType,
		Size:     meta.FileSize,
	}, nil
}

func (g *GraphMediaFetcher) lookup(ctx context.Context, mediaID string) (*mediaMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+mediaID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to look up media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media lookup for %s returned status %d", mediaID, resp.StatusCode)
	}

	var meta mediaMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode media metadata for %s: %w", mediaID, err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("media lookup for %s returned no download URL", mediaID)
	}
	return &meta, nil
}
