// Package images persists raster assets for stories: paid renders via
// the image API when configured and approved, stock substitutes
// otherwise.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/runlog"
)

// Renderer turns prompts into PNG files on disk.
type Renderer struct {
	Client *ai.Client
	Budget *ai.Budget
	Log    *runlog.Log
}

// Render generates the asset at outFile. An existing file with
// force=false short-circuits successfully without any external call, so
// reruns never re-spend budget. It reports false, without error, when
// no client is configured, the budget denies the render, or the
// response carries no image payload; callers fall back to stock.
func (r *Renderer) Render(ctx context.Context, slug, prompt, outFile string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(outFile); err == nil {
			return true, nil
		}
	}
	if !r.Client.Configured() {
		return false, nil
	}
	if r.Budget != nil && !r.Budget.ApproveImages(1, "render:"+slug) {
		r.Log.Warnf(slug, "images: budget denied render of %s", filepath.Base(outFile))
		return false, nil
	}
	payload, err := r.Client.GenerateImage(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("images: render %s: %w", filepath.Base(outFile), err)
	}
	if payload == "" {
		return false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return false, fmt.Errorf("images: decode %s: %w", filepath.Base(outFile), err)
	}
	encoded, err := reencodePNG(raw)
	if err != nil {
		return false, fmt.Errorf("images: encode %s: %w", filepath.Base(outFile), err)
	}
	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return false, fmt.Errorf("images: prepare dir for %s: %w", outFile, err)
	}
	if err := os.WriteFile(outFile, encoded, 0o644); err != nil {
		return false, fmt.Errorf("images: write %s: %w", outFile, err)
	}
	return true, nil
}

// reencodePNG decodes the raw bytes and writes them back out as PNG,
// normalizing whatever encoding the service returned.
func reencodePNG(raw []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
