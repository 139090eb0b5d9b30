package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"content-crew/internal/adapter/wavespeed"
	"content-crew/internal/domain"
)

// ImageAPI is the subset of the WaveSpeed client the image tools use.
type ImageAPI interface {
	HasKey() bool
	TextToImage(ctx context.Context, req wavespeed.TextToImageRequest) (*wavespeed.Prediction, error)
	Wait(ctx context.Context, id string) (*wavespeed.Prediction, error)
	Edit(ctx context.Context, req wavespeed.EditRequest) (json.RawMessage, error)
}

var _ ImageAPI = (*wavespeed.Client)(nil)

// errNoImageKey is reported when an image tool runs without WAVESPEED_API_KEY.
var errNoImageKey = fmt.Errorf("WAVESPEED_API_KEY is not set: %w", domain.ErrMissingAPIKey)

const (
	defaultAspectRatio = "16:9"
	defaultResolution  = "1k"
	outputFormatPNG    = "png"
)

var (
	resolutions  = []string{"1k", "2k", "4k"}
	aspectRatios = []string{"1:1", "3:2", "2:3", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}
)

// aspectFromSize maps a "WxH" size onto the closest supported aspect ratio.
func aspectFromSize(size string) (string, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return "", fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", size)
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(w))
	height, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", size)
	}

	target := float64(width) / float64(height)
	best, bestDiff := defaultAspectRatio, math.MaxFloat64
	for _, ar := range aspectRatios {
		a, b, _ := strings.Cut(ar, ":")
		num, _ := strconv.Atoi(a)
		den, _ := strconv.Atoi(b)
		if diff := math.Abs(float64(num)/float64(den) - target); diff < bestDiff {
			best, bestDiff = ar, diff
		}
	}
	return best, nil
}
