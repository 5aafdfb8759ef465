package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"wordchain/domain"
	"wordchain/game"
)

const DefaultTimeout = 3 * time.Second

// Client talks to the remote dictionary service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wordsResponse struct {
	Words []string `json:"words"`
}

func (c *Client) get(ctx context.Context, endpoint string, out any) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDictionaryError, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDictionaryError, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %d", domain.UnexpectedDictionaryError, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: decode: %w", domain.UnexpectedDictionaryError, err)
	}
	return true, nil
}

func (c *Client) LookupDefinition(ctx context.Context, word string) (*game.Definition, error) {
	var def game.Definition
	found, err := c.get(ctx, c.baseURL+"/words/"+url.PathEscape(word), &def)
	if err != nil || !found {
		return nil, err
	}
	if def.Word == "" {
		def.Word = word
	}
	return &def, nil
}

func (c *Client) FindWordsStartingWith(ctx context.Context, syllable string, minLength, maxLength int) ([]string, error) {
	q := url.Values{}
	q.Set("start", syllable)
	q.Set("min", strconv.Itoa(minLength))
	q.Set("max", strconv.Itoa(maxLength))

	var body wordsResponse
	found, err := c.get(ctx, c.baseURL+"/words?"+q.Encode(), &body)
	if err != nil || !found {
		return nil, err
	}
	return body.Words, nil
}
