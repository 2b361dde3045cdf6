package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFound(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/detect", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"found": true,
			"detections": []map[string]interface{}{
				{"label": "bottle", "conf": 0.87, "box": []float64{1, 2, 3, 4}},
				{"label": "cup", "conf": 0.55, "box": []float64{5, 6, 7, 8}},
			},
			"preview_b64": base64.StdEncoding.EncodeToString([]byte("annotated")),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	res, err := client.Detect(context.Background(), []byte("frame-bytes"), "bottle", 0.4)
	require.NoError(t, err)

	assert.True(t, res.Found)
	require.Len(t, res.Detections, 2)
	assert.Equal(t, "bottle", res.Detections[0].Label)
	assert.InDelta(t, 0.87, res.Detections[0].Confidence, 1e-9)
	assert.Equal(t, []byte("annotated"), res.Preview)

	// Frame travels as base64, with target and threshold alongside.
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("frame-bytes")), gotBody["image_b64"])
	assert.Equal(t, "bottle", gotBody["target"])
	assert.InDelta(t, 0.4, gotBody["threshold"].(float64), 1e-9)
}

func TestDetectNotFoundWithoutPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"found": false, "detections": []interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	res, err := client.Detect(context.Background(), []byte("frame"), "cat", 0.4)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Preview)
}

func TestDetectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "infer failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Detect(context.Background(), []byte("frame"), "cat", 0.4)
	assert.ErrorContains(t, err, "detect service error")
}

func TestDetectMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Detect(context.Background(), []byte("frame"), "cat", 0.4)
	assert.ErrorContains(t, err, "malformed detect response")
}

func TestDetectTimeoutBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 20*time.Millisecond)
	start := time.Now()
	_, err := client.Detect(context.Background(), []byte("frame"), "cat", 0.4)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestHealth(t *testing.T) {
	ok := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"ok": ok})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	assert.NoError(t, client.Health(context.Background()))

	ok = false
	assert.ErrorContains(t, client.Health(context.Background()), "not ok")
}
