package studio

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/genai/gemini"
	"genai-gateway/internal/genai/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	output string
	err    error

	prompt string
	media  *genai.Media
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, media *genai.Media) (string, error) {
	f.prompt = prompt
	f.media = media
	return f.output, f.err
}

type fakeConverter struct {
	png []byte
	err error
	svg string
}

func (f *fakeConverter) ToPNG(svg []byte) ([]byte, error) {
	f.svg = string(svg)
	return f.png, f.err
}

type fakeOSS struct {
	bucket, key, contentType string
	body                     []byte
	expiresIn                int64
	err                      error
}

func (f *fakeOSS) UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	return bucket + "/" + key, nil
}

func (f *fakeOSS) GetSignedURL(ctx context.Context, bucket, key string, expiresIn int64) (string, error) {
	return "https://signed/" + key, nil
}

func (f *fakeOSS) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string, expiresIn int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bucket, f.key, f.contentType = bucket, key, contentType
	f.expiresIn = expiresIn
	f.body, _ = io.ReadAll(reader)
	if expiresIn > 0 {
		return "https://signed.example.com/" + key, nil
	}
	return "https://cdn.example.com/" + key, nil
}

func TestGenerateText(t *testing.T) {
	completer := &fakeCompleter{output: "jawaban"}
	svc := NewService(completer, &fakeConverter{}, nil)

	out, err := svc.GenerateText(context.Background(), "apa kabar?")
	require.NoError(t, err)
	assert.Equal(t, "jawaban", out)
	assert.Equal(t, "apa kabar?", completer.prompt)
	assert.Nil(t, completer.media)
}

func TestMediaOperations_DefaultPrompts(t *testing.T) {
	media := &genai.Media{Data: []byte("x"), MIMEType: "application/octet-stream"}

	tests := []struct {
		name string
		call func(*Service, string) (string, error)
		want string
	}{
		{"vision", func(s *Service, p string) (string, error) { return s.DescribeImage(context.Background(), p, media) }, DefaultVisionPrompt},
		{"document", func(s *Service, p string) (string, error) { return s.AnalyzeDocument(context.Background(), p, media) }, DefaultDocumentPrompt},
		{"audio", func(s *Service, p string) (string, error) { return s.TranscribeAudio(context.Background(), p, media) }, DefaultAudioPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{output: "ok"}
			svc := NewService(completer, &fakeConverter{}, nil)

			_, err := tt.call(svc, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, completer.prompt)
			assert.Same(t, media, completer.media)

			_, err = tt.call(svc, "custom")
			require.NoError(t, err)
			assert.Equal(t, "custom", completer.prompt)
		})
	}
}

func TestMediaOperations_RequireMedia(t *testing.T) {
	svc := NewService(&fakeCompleter{}, &fakeConverter{}, nil)

	_, err := svc.DescribeImage(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrMediaRequired)

	_, err = svc.AnalyzeDocument(context.Background(), "", &genai.Media{MIMEType: "application/pdf"})
	assert.ErrorIs(t, err, ErrMediaRequired)
}

func TestGenerateImage(t *testing.T) {
	completer := &fakeCompleter{output: "Ini gambarnya:\n<svg viewBox=\"0 0 1 1\"><rect/></svg>\nSelesai."}
	converter := &fakeConverter{png: []byte("PNG")}
	svc := NewService(completer, converter, nil)

	img, err := svc.GenerateImage(context.Background(), "kucing")
	require.NoError(t, err)

	assert.Equal(t, "Buatkan gambar dalam format SVG saja tanpa penjelasan: kucing", completer.prompt)
	assert.Equal(t, `<svg viewBox="0 0 1 1"><rect/></svg>`, img.SVG)
	assert.Equal(t, img.SVG, converter.svg)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("PNG")), img.PNG)
	assert.Equal(t, ImageNote, img.Note)
	assert.Empty(t, img.URL)
}

func TestGenerateImage_NoSVG(t *testing.T) {
	converter := &fakeConverter{}
	svc := NewService(&fakeCompleter{output: "Maaf, tidak bisa."}, converter, nil)

	_, err := svc.GenerateImage(context.Background(), "kucing")
	require.ErrorIs(t, err, ErrSVGNotFound)
	assert.Equal(t, "SVG tidak ditemukan dalam output AI.", err.Error())
	assert.Empty(t, converter.svg, "conversion must not be attempted")
}

func TestGenerateImage_Failures(t *testing.T) {
	upstream := errors.New("quota exceeded")
	_, err := NewService(&fakeCompleter{err: upstream}, &fakeConverter{}, nil).GenerateImage(context.Background(), "x")
	assert.ErrorIs(t, err, upstream)

	_, err = NewService(&fakeCompleter{output: "<svg></svg>"}, &fakeConverter{err: errors.New("bad svg")}, nil).GenerateImage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad svg")
}

func TestGenerateImage_UploadsToStorage(t *testing.T) {
	store := &fakeOSS{}
	svc := NewService(&fakeCompleter{output: "<svg></svg>"}, &fakeConverter{png: []byte("PNG")}, &Storage{Client: store, Bucket: "bkt"})

	img, err := svc.GenerateImage(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, "bkt", store.bucket)
	assert.Equal(t, "image/png", store.contentType)
	assert.True(t, strings.HasPrefix(store.key, "images/"), store.key)
	assert.True(t, strings.HasSuffix(store.key, ".png"), store.key)
	assert.Equal(t, []byte("PNG"), store.body)
	assert.Equal(t, "https://cdn.example.com/"+store.key, img.URL)

	assert.Zero(t, store.expiresIn)

	store.err = errors.New("access denied")
	_, err = svc.GenerateImage(context.Background(), "x")
	assert.ErrorContains(t, err, "access denied")
}

func TestGenerateImage_SignedURL(t *testing.T) {
	store := &fakeOSS{}
	storage := &Storage{Client: store, Bucket: "bkt", ExpiresIn: 3600 * 24 * 7}
	svc := NewService(&fakeCompleter{output: "<svg></svg>"}, &fakeConverter{png: []byte("PNG")}, storage)

	img, err := svc.GenerateImage(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, int64(604800), store.expiresIn)
	assert.Equal(t, "https://signed.example.com/"+store.key, img.URL)
}

func TestNewServiceFromConfig_StorageExpiry(t *testing.T) {
	cfg := &common.Config{
		GenAIProvider:        common.ProviderGemini,
		GenAIAPIKey:          "k",
		GenAIModelName:       "gemini-2.5-flash",
		GenAIImageFormat:     common.ImageFormatURL,
		OSSEndpoint:          "http://127.0.0.1:9000",
		OSSRegion:            "us-east-1",
		OSSAccessKey:         "ak",
		OSSSecretKey:         "sk",
		OSSBucket:            "bkt",
		OSSURLExpiresSeconds: 3600,
	}

	svc, err := NewServiceFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, svc.storage)
	assert.Equal(t, "bkt", svc.storage.Bucket)
	assert.Equal(t, int64(3600), svc.storage.ExpiresIn)

	cfg.GenAIImageFormat = common.ImageFormatBase64
	svc, err = NewServiceFromConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, svc.storage)
}

func TestNewCompleterFromConfig(t *testing.T) {
	cfg := &common.Config{GenAIProvider: common.ProviderGemini, GenAIAPIKey: "k", GenAIModelName: "gemini-2.5-flash"}
	completer, err := NewCompleterFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, completer)

	cfg.GenAIProvider = common.ProviderOpenAI
	completer, err = NewCompleterFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, completer)

	cfg.GenAIProvider = "wan"
	_, err = NewCompleterFromConfig(cfg)
	assert.Error(t, err)
}
