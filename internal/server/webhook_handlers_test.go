package server

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fotozip/internal/services"
)

func TestWebhookVerifyHandshake(t *testing.T) {
	router, _ := newTestServer(t, &fakeMediaFetcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secreto&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	router, _ := newTestServer(t, &fakeMediaFetcher{})

	for _, target := range []string{
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=equivocado&hub.challenge=1",
		"/webhook/whatsapp?hub.mode=unsubscribe&hub.verify_token=secreto&hub.challenge=1",
		"/webhook/whatsapp",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, "target %s", target)
	}
}

func webhookBody(inner string) io.Reader {
	return strings.NewReader(fmt.Sprintf(
		`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{%s}}]}]}`, inner))
}

func TestWebhookStatusUpdateAcknowledged(t *testing.T) {
	router, _ := newTestServer(t, &fakeMediaFetcher{})

	body := webhookBody(`"statuses":[{"id":"wamid.X","status":"delivered"}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", parsed["status"])
}

func TestWebhookTextMessageEchoed(t *testing.T) {
	router, _ := newTestServer(t, &fakeMediaFetcher{})

	body := webhookBody(`"messages":[{"from":"34600111222","id":"wamid.Y","type":"text","text":{"body":"hola caracola"}}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", parsed["status"])
	assert.Equal(t, "hola caracola", parsed["echo"])
}

func TestWebhookImageBecomesArchive(t *testing.T) {
	fetcher := &fakeMediaFetcher{media: &services.FetchedMedia{
		Body:     io.NopCloser(bytes.NewReader(jpegBytes)),
		MimeType: "image/jpeg",
		Size:     int64(len(jpegBytes)),
	}}
	router, _ := newTestServer(t, fetcher)

	body := webhookBody(`"messages":[{"from":"34600111222","id":"wamid.Z","type":"image","image":{"id":"MEDIA1","mime_type":"image/jpeg"}}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", parsed["status"])

	downloadURL, _ := parsed["downloadUrl"].(string)
	require.NotEmpty(t, downloadURL)

	req := httptest.NewRequest(http.MethodGet, downloadURL, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(jpegBytes, got))
}

func TestWebhookDocumentKeepsFilename(t *testing.T) {
	fetcher := &fakeMediaFetcher{media: &services.FetchedMedia{
		Body:     io.NopCloser(strings.NewReader("%PDF-1.4 contenido")),
		MimeType: "application/pdf",
		Size:     18,
	}}
	router, _ := newTestServer(t, fetcher)

	body := webhookBody(`"messages":[{"from":"34600111222","id":"wamid.D","type":"document","document":{"id":"MEDIA2","mime_type":"application/pdf","filename":"informe.pdf"}}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	downloadURL, _ := parsed["downloadUrl"].(string)
	require.NotEmpty(t, downloadURL)

	req := httptest.NewRequest(http.MethodGet, downloadURL, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "informe.pdf", zr.File[0].Name)
}

func TestWebhookMediaFetchFailure(t *testing.T) {
	fetcher := &fakeMediaFetcher{err: errors.New("graph api down")}
	router, _ := newTestServer(t, fetcher)

	body := webhookBody(`"messages":[{"from":"1","id":"wamid.E","type":"image","image":{"id":"MEDIA3"}}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, parsed["success"])
}

func TestWebhookDisallowedMediaAcknowledged(t *testing.T) {
	fetcher := &fakeMediaFetcher{media: &services.FetchedMedia{
		Body:     io.NopCloser(strings.NewReader("oggdata")),
		MimeType: "audio/ogg",
		Size:     7,
	}}
	router, _ := newTestServer(t, fetcher)

	body := webhookBody(`"messages":[{"from":"1","id":"wamid.F","type":"document","document":{"id":"MEDIA4","mime_type":"audio/ogg","filename":"nota.ogg"}}]`)
	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp", body, "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", parsed["status"])
}

func TestWebhookUnparseablePayloadAcknowledged(t *testing.T) {
	router, _ := newTestServer(t, &fakeMediaFetcher{})

	w, parsed := doJSON(t, router, http.MethodPost, "/webhook/whatsapp",
		strings.NewReader("esto no es json"), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", parsed["status"])
}
