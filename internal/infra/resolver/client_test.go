package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve", r.URL.Path)
		assert.Equal(t, "never gonna give you up", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		response := `[
			{"id": "dQw4w9WgXcQ", "url": "https://media.example/dQw4w9WgXcQ", "name": "Never Gonna Give You Up", "artist": "Rick Astley", "duration": 213, "thumbnailUrl": "https://img.example/a.jpg"},
			{"id": "xyz", "url": "https://media.example/xyz", "name": "Cover", "artist": "Someone", "duration": 200, "thumbnailUrl": ""}
		]`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	songs, err := client.Resolve(context.Background(), "never gonna give you up", 2)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "dQw4w9WgXcQ", songs[0].MediaRef)
	assert.Equal(t, "Rick Astley", songs[0].Artist)
	assert.Equal(t, 213, songs[0].DurationSecs)
}

func TestResolve_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	songs, err := client.Resolve(context.Background(), "gibberish", 5)
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestResolve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "anything", 1)
	assert.Error(t, err)
}

func TestResolve_EmptyQuery(t *testing.T) {
	client, err := New(Config{BaseURL: "http://resolver.local"})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "", 1)
	assert.Error(t, err)
}

func TestNew_MissingBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
