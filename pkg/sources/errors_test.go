package sources

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchErrorMatchesOneSentinel(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindNetwork, ErrNetwork},
		{KindAPI, ErrAPI},
		{KindNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &FetchError{Kind: tt.kind, Op: "op"})
			for _, sentinel := range []error{ErrNetwork, ErrAPI, ErrNotFound} {
				assert.Equal(t, sentinel == tt.want, errors.Is(err, sentinel), "sentinel %v", sentinel)
			}
		})
	}
}

func TestMessageFallbacks(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Contains(t, Message(&FetchError{Kind: KindNetwork}), "Could not reach")
	assert.Equal(t, "custom", Message(&FetchError{Kind: KindAPI, Message: "custom"}))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestFetchErrorString(t *testing.T) {
	err := &FetchError{Kind: KindAPI, Op: "list stories", Status: 500, Message: "oops"}
	assert.Equal(t, "list stories: api (status 500): oops", err.Error())

	cause := errors.New("dial tcp: refused")
	err = &FetchError{Kind: KindNetwork, Op: "get chapter", Err: cause}
	assert.Equal(t, "get chapter: network: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFallbackHost(t *testing.T) {
	assert.Nil(t, FallbackHost(""))

	fallback := FallbackHost("https://mirror.example.com/cdn/")
	assert.Equal(t, "https://mirror.example.com/cdn/img/p1.jpg", fallback("http://img.example.com/img/p1.jpg"))
	assert.Equal(t, "", fallback("https://mirror.example.com/cdn/img/p1.jpg"))
	assert.Equal(t, "", fallback("not a url"))
}
