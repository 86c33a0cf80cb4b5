package server

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"mime/multipart"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"

	"github.com/camtools/backdrop/config"
	"github.com/camtools/backdrop/segment"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

var (
	errUnauthorized = errors.New("unauthorized")
)

func authenticate(c *gin.Context) error {
	auth := c.GetHeader("Authorization")

	expectedToken := config.C().Token
	if expectedToken == "" {
		return nil
	}
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(expectedToken)) != 1 {
		return errUnauthorized
	}

	return nil
}

func decodeFormImage(fileHeader *multipart.FileHeader) (image.Image, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ProcessHandler replaces the background of an uploaded frame. The request
// carries the frame in the "frame" form field and optionally a background in
// "background"; without one the configured default background is used. The
// background is resized to the frame's dimensions before compositing.
func ProcessHandler(c *gin.Context) {
	if err := authenticate(c); err != nil {
		c.JSON(401, gin.H{"error": "authentication failed"})
		return
	}

	frameHeader, err := c.FormFile("frame")
	if err != nil {
		c.JSON(400, gin.H{"error": "no frame uploaded"})
		return
	}
	frameImg, err := decodeFormImage(frameHeader)
	if err != nil {
		c.JSON(400, gin.H{"error": "cannot decode frame"})
		return
	}

	var bgImg image.Image
	if bgHeader, err := c.FormFile("background"); err == nil {
		bgImg, err = decodeFormImage(bgHeader)
		if err != nil {
			c.JSON(400, gin.H{"error": "cannot decode background"})
			return
		}
	} else if background != nil {
		bgImg = background
	} else {
		c.JSON(400, gin.H{"error": "no background uploaded and no default configured"})
		return
	}

	frame := toNRGBA(frameImg)
	size := frame.Bounds().Size()
	if bgImg.Bounds().Size() != size {
		bgImg = imaging.Resize(bgImg, size.X, size.Y, imaging.Lanczos)
	}

	if err := remover.ProcessFrame(frame, toNRGBA(bgImg)); err != nil {
		slog.Error("Frame processing failed", slog.String("error", err.Error()))
		c.JSON(500, gin.H{"error": "processing failed"})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		slog.Error("Failed to encode result", slog.String("error", err.Error()))
		c.JSON(500, gin.H{"error": "encoding failed"})
		return
	}
	c.Data(200, "image/png", buf.Bytes())
}

// MaskHandler serves the segmentation mask of the last processed frame as a
// PNG. The "scale" query selects the raw model-resolution mask ("low") or
// the frame-resolution upsample (default).
func MaskHandler(c *gin.Context) {
	if err := authenticate(c); err != nil {
		c.JSON(401, gin.H{"error": "authentication failed"})
		return
	}

	_, mask, upsampled := remover.Intermediates()
	img := upsampled
	if c.Query("scale") == "low" {
		img = mask
	}
	if img == nil {
		c.JSON(404, gin.H{"error": "no frame processed yet, or keep_intermediates disabled"})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		c.JSON(500, gin.H{"error": "encoding failed"})
		return
	}
	c.Data(200, "image/png", buf.Bytes())
}

// ModelInputHandler serves the last model input frame, reconstructed from the
// normalized tensor, as a PNG.
func ModelInputHandler(c *gin.Context) {
	if err := authenticate(c); err != nil {
		c.JSON(401, gin.H{"error": "authentication failed"})
		return
	}

	input, _, _ := remover.Intermediates()
	if input == nil {
		c.JSON(404, gin.H{"error": "no frame processed yet, or keep_intermediates disabled"})
		return
	}
	img := segment.TensorImage(input, remover.Profile(), remover.Shape())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		c.JSON(500, gin.H{"error": "encoding failed"})
		return
	}
	c.Data(200, "image/png", buf.Bytes())
}

func HealthHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy"})
}
