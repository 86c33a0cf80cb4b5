package server

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/camtools/backdrop/config"
	"github.com/camtools/backdrop/segment"
	"github.com/disintegration/imaging"
)

var (
	remover    *segment.Remover
	background image.Image
)

// Init builds the background-replacement pipeline from the configuration,
// downloading the model first when it is missing and a model URL is set.
func Init(ctx context.Context) error {
	cfg := config.C()

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if cfg.ModelUrl == "" {
			return fmt.Errorf("model file %s not found and no model_url configured", cfg.ModelPath)
		}
		if err := downloadModel(ctx, cfg.ModelUrl, cfg.ModelPath); err != nil {
			return fmt.Errorf("download model: %w", err)
		}
	}

	r, err := segment.NewRemover(segment.Options{
		ModelPath:         cfg.ModelPath,
		Family:            cfg.ModelFamily,
		NumThreads:        cfg.NumThreads,
		UseCUDA:           cfg.UseCuda,
		PersonClassIndex:  cfg.PersonClassIndex,
		PersonThreshold:   cfg.PersonThreshold,
		KeepIntermediates: cfg.KeepIntermediates,
	})
	if err != nil {
		return err
	}
	remover = r

	if cfg.BackgroundPath != "" {
		img, err := imaging.Open(cfg.BackgroundPath)
		if err != nil {
			return fmt.Errorf("open background image: %w", err)
		}
		background = img
		slog.Info("loaded default background", slog.String("path", cfg.BackgroundPath))
	}

	return nil
}

// Close releases the pipeline's native resources.
func Close() {
	if remover != nil {
		if err := remover.Close(); err != nil {
			slog.Error("Failed to close pipeline", slog.String("error", err.Error()))
		}
		remover = nil
	}
}

func downloadModel(ctx context.Context, url, path string) error {
	slog.Info("Downloading model", slog.String("url", url), slog.String("path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	slog.Info("Model downloaded", slog.Int64("bytes", n))
	return nil
}
