package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"genai-gateway/internal/genai"
	"genai-gateway/internal/studio"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

type fakeConverter struct{}

func (fakeConverter) ToPNG(svg []byte) ([]byte, error) {
	return []byte("PNG"), nil
}

func newTestRouter(completer *fakeCompleter) *gin.Engine {
	svc := studio.NewService(completer, fakeConverter{}, nil)
	return NewRouter(NewHandler(svc), 1<<20)
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type upload struct {
	field, filename, mimeType string
	data                      []byte
}

func postMultipart(t *testing.T, r http.Handler, path string, fields map[string]string, file *upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.filename+`"`)
		h.Set("Content-Type", file.mimeType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestGenerateText(t *testing.T) {
	completer := &fakeCompleter{output: "Halo!"}
	w := postJSON(t, newTestRouter(completer), "/generate-text", `{"prompt":"halo"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"response": "Halo!"}, decode(t, w))
	assert.Equal(t, "halo", completer.prompt)
}

func TestGenerateText_UpstreamError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("failed to generate content: quota exceeded")}
	w := postJSON(t, newTestRouter(completer), "/generate-text", `{"prompt":"halo"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]string{"message": "failed to generate content: quota exceeded"}, decode(t, w))
}

func TestGenerateVision_NoFile(t *testing.T) {
	completer := &fakeCompleter{output: "unused"}
	r := newTestRouter(completer)

	w := postMultipart(t, r, "/generate-vision", map[string]string{"prompt": "apa ini?"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"message": "No image uploaded"}, decode(t, w))

	w = postJSON(t, r, "/generate-vision", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"message": "No image uploaded"}, decode(t, w))

	assert.Empty(t, completer.prompt, "completion must not be called")
}

func TestGenerateVision(t *testing.T) {
	completer := &fakeCompleter{output: "Seekor kucing."}
	file := &upload{field: "image", filename: "cat.png", mimeType: "image/png", data: []byte{0x89, 'P', 'N', 'G'}}

	w := postMultipart(t, newTestRouter(completer), "/generate-vision", nil, file)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"response": "Seekor kucing."}, decode(t, w))
	assert.Equal(t, studio.DefaultVisionPrompt, completer.prompt)
	require.NotNil(t, completer.media)
	assert.Equal(t, "image/png", completer.media.MIMEType)
	assert.Equal(t, file.data, completer.media.Data)
}

func TestAnalyzeDocument(t *testing.T) {
	completer := &fakeCompleter{output: "Ringkasan dokumen."}
	file := &upload{field: "file", filename: "a.pdf", mimeType: "application/pdf", data: []byte("%PDF-1.4")}

	w := postMultipart(t, newTestRouter(completer), "/analyze-document", map[string]string{"prompt": "ringkas"}, file)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"response": "Ringkasan dokumen."}, decode(t, w))
	assert.Equal(t, "ringkas", completer.prompt)
	assert.Equal(t, "application/pdf", completer.media.MIMEType)
}

func TestAnalyzeDocument_NoFile(t *testing.T) {
	w := postMultipart(t, newTestRouter(&fakeCompleter{}), "/analyze-document", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"message": "No document uploaded"}, decode(t, w))
}

func TestGenerateFromAudio(t *testing.T) {
	completer := &fakeCompleter{output: "Selamat pagi semuanya."}
	file := &upload{field: "audio", filename: "rec.mp3", mimeType: "audio/mpeg", data: []byte("ID3")}

	w := postMultipart(t, newTestRouter(completer), "/generate-from-audio", nil, file)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"transcription": "Selamat pagi semuanya."}, decode(t, w))
	assert.Equal(t, studio.DefaultAudioPrompt, completer.prompt)
	assert.Equal(t, "audio/mpeg", completer.media.MIMEType)
}

func TestGenerateFromAudio_EmptyFile(t *testing.T) {
	file := &upload{field: "audio", filename: "empty.wav", mimeType: "audio/wav"}

	w := postMultipart(t, newTestRouter(&fakeCompleter{}), "/generate-from-audio", nil, file)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"message": "No audio uploaded"}, decode(t, w))
}

func TestUpload_TooLarge(t *testing.T) {
	completer := &fakeCompleter{output: "unused"}
	file := &upload{field: "image", filename: "big.png", mimeType: "image/png", data: bytes.Repeat([]byte{0x7f}, 3<<20)}

	w := postMultipart(t, newTestRouter(completer), "/generate-vision", nil, file)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, map[string]string{"message": "Uploaded file is too large"}, decode(t, w))
	assert.Nil(t, completer.media, "completion must not be called")
}

func TestGenerateImage(t *testing.T) {
	completer := &fakeCompleter{output: "```svg\n<svg><circle r=\"4\"/></svg>\n```"}

	w := postJSON(t, newTestRouter(completer), "/generate-image", `{"prompt":"bulan"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, `<svg><circle r="4"/></svg>`, body["svg"])
	assert.Equal(t, "data:image/png;base64,UE5H", body["png"])
	assert.Equal(t, studio.ImageNote, body["note"])
	_, hasURL := body["url"]
	assert.False(t, hasURL)
}

func TestGenerateImage_NoSVG(t *testing.T) {
	completer := &fakeCompleter{output: "Saya tidak dapat membuat gambar."}

	w := postJSON(t, newTestRouter(completer), "/generate-image", `{"prompt":"bulan"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]string{"message": "SVG tidak ditemukan dalam output AI."}, decode(t, w))
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	newTestRouter(&fakeCompleter{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode(t, w))
}
