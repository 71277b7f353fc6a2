package superres

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
)

// Client calls the super-resolution inference service over HTTP. The image
// is sent PNG-encoded and the service answers with the upscaled image.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the inference service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Upscale sends the image to the inference service with the given scale
// factor and decodes the result. Inference is a blocking, synchronous call
// on the consuming goroutine.
func (c *Client) Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	url := c.baseURL + "/upscale?factor=" + strconv.Itoa(factor)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, body)
	}

	out, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode upscaled image: %w", err)
	}

	return out, nil
}
