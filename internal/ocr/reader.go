// Package ocr turns a meter photo into candidate readings. Its output is a
// suggestion for the operator; bill creation still takes the reading as input.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// MaxWidth is the width photos are scaled down to before recognition.
const MaxWidth = 1200

// ErrNoText is returned when the model found nothing readable.
var ErrNoText = errors.New("no text detected in image")

// Reader reads the display of a meter.
type Reader interface {
	ReadMeter(ctx context.Context, image []byte) (*Result, error)
}

const prompt = `You are reading a photo of an electricity meter.
Return only the characters printed or displayed on it, one token per line.
Include the meter display digits and any serial number. Do not explain.`

// GeminiReader sends photos to a Gemini vision model.
type GeminiReader struct {
	client *genai.Client
	model  string
}

func NewGeminiReader(ctx context.Context, apiKey, model string) (*GeminiReader, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiReader{client: client, model: model}, nil
}

func (g *GeminiReader) Close() error {
	return g.client.Close()
}

func (g *GeminiReader) ReadMeter(ctx context.Context, img []byte) (*Result, error) {
	// 1. Clean up the photo
	prepared, err := Preprocess(img)
	if err != nil {
		return nil, err
	}

	// 2. Ask the model for the text on it
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	resp, err := model.GenerateContent(ctx, genai.ImageData("jpeg", prepared), genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
				sb.WriteString("\n")
			}
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, ErrNoText
	}

	// 3. Pull the numbers out
	res := Extract(sb.String())
	return &res, nil
}

// Preprocess decodes a JPEG or PNG, scales it down to MaxWidth, brightens and
// sharpens it, and re-encodes it as JPEG.
func Preprocess(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var out image.Image = img
	if out.Bounds().Dx() > MaxWidth {
		out = imaging.Resize(out, MaxWidth, 0, imaging.Lanczos)
	}
	out = imaging.AdjustBrightness(out, 10)
	out = imaging.Sharpen(out, 1)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
