package dictionary_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"wordchain/dictionary"
	"wordchain/domain"
	"wordchain/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDictionaryServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /words/{word}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.PathValue("word") {
		case "사과":
			_ = json.NewEncoder(w).Encode(game.Definition{Word: "사과", Meaning: "apple"})
		case "broken":
			_, _ = w.Write([]byte("{"))
		case "slow":
			time.Sleep(200 * time.Millisecond)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /words", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != "가" || q.Get("min") != "3" || q.Get("max") != "3" {
			_ = json.NewEncoder(w).Encode(map[string][]string{"words": {}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"words": {"가나다", "가로수"}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_LookupDefinition(t *testing.T) {
	server := newDictionaryServer(t)
	client := dictionary.NewClient(server.URL+"/", "k", 100*time.Millisecond)
	ctx := context.Background()

	testCases := []struct {
		desc        string
		word        string
		expected    *game.Definition
		expectedErr error
	}{
		{desc: "known word", word: "사과", expected: &game.Definition{Word: "사과", Meaning: "apple"}},
		{desc: "unknown word", word: "없는말"},
		{desc: "malformed body", word: "broken", expectedErr: domain.UnexpectedDictionaryError},
		{desc: "client timeout", word: "slow", expectedErr: domain.UnexpectedDictionaryError},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			def, err := client.LookupDefinition(ctx, tc.word)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Equal(t, tc.expected, def)
		})
	}
}

func TestClient_RejectedKey(t *testing.T) {
	server := newDictionaryServer(t)
	client := dictionary.NewClient(server.URL, "wrong", 0)

	_, err := client.LookupDefinition(context.Background(), "사과")
	assert.ErrorIs(t, err, domain.UnexpectedDictionaryError)
}

func TestClient_CanceledContext(t *testing.T) {
	server := newDictionaryServer(t)
	client := dictionary.NewClient(server.URL, "k", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.LookupDefinition(ctx, "사과")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_FindWordsStartingWith(t *testing.T) {
	server := newDictionaryServer(t)
	client := dictionary.NewClient(server.URL, "k", time.Second)
	ctx := context.Background()

	words, err := client.FindWordsStartingWith(ctx, "가", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"가나다", "가로수"}, words)

	words, err = client.FindWordsStartingWith(ctx, "하", 3, 3)
	require.NoError(t, err)
	assert.Empty(t, words)
}
