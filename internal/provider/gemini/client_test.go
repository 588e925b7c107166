package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-cover-maker/internal/cover"
)

func testJob() cover.Job {
	return cover.Job{
		Prompt:      "make a cover",
		ImageBase64: "aGVsbG8=",
		ImageMIME:   "image/jpeg",
		AspectRatio: "16:9",
		Resolution:  "2K",
		Secret:      "sk-gemini",
	}
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Options{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestGenerateReturnsInlineImage(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateContentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		resp := generateContentResponse{Candidates: []candidate{{
			Content: content{Parts: []part{
				{Text: "here you go"},
				{InlineData: &blob{Data: "QUJD", MimeType: "image/png"}},
			}},
		}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	dataURI, err := newTestClient(srv).Generate(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,QUJD", dataURI)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", gotPath)
	assert.Equal(t, "sk-gemini", gotKey)

	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 2)
	assert.Equal(t, "make a cover", gotBody.Contents[0].Parts[0].Text)
	require.NotNil(t, gotBody.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "aGVsbG8=", gotBody.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, []string{"IMAGE"}, gotBody.GenerationConfig.ResponseModalities)
	require.NotNil(t, gotBody.GenerationConfig.ImageConfig)
	assert.Equal(t, "16:9", gotBody.GenerationConfig.ImageConfig.AspectRatio)
	assert.Equal(t, "2K", gotBody.GenerationConfig.ImageConfig.ImageSize)
}

func TestGenerateNoImagePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateContentResponse{Candidates: []candidate{{
			Content: content{Parts: []part{{Text: "sorry, text only"}}},
		}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testJob())
	require.Error(t, err)
	assert.Equal(t, cover.KindNoImage, cover.KindOf(err))
}

func TestGenerateOverloadedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testJob())
	require.Error(t, err)
	assert.Equal(t, cover.KindOverloaded, cover.KindOf(err))
	assert.True(t, cover.IsOverloaded(err))
}

func TestGenerateCredentialStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testJob())
	require.Error(t, err)
	assert.Equal(t, cover.KindCredential, cover.KindOf(err))
	assert.False(t, cover.IsOverloaded(err))
}
