package llm

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/pricetag-scanner/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// CachedGenerator wraps a Generator with a persistent answer cache. Only the
// raw model text is cached, so hits go through the same normalizer as live
// answers.
type CachedGenerator struct {
	inner Generator
	store storage.AnalysisCache
	model string
}

// NewCachedGenerator creates a cached generator. model is part of the cache
// key so that switching models does not serve stale answers.
func NewCachedGenerator(inner Generator, store storage.AnalysisCache, model string) *CachedGenerator {
	return &CachedGenerator{inner: inner, store: store, model: model}
}

// hashParts creates a BLAKE2b-256 hash over the model name and all parts.
// Each field is length-prefixed to prevent boundary collisions.
func hashParts(model string, parts []Part) string {
	h, _ := blake2b.New256(nil)
	write := func(b []byte) {
		binary.Write(h, binary.LittleEndian, int64(len(b)))
		h.Write(b)
	}
	write([]byte(model))
	for _, p := range parts {
		write([]byte(p.MIMEType))
		write([]byte(p.Text))
		write(p.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Generate implements the Generator interface with caching.
func (c *CachedGenerator) Generate(ctx context.Context, parts []Part) (*Generation, error) {
	key := hashParts(c.model, parts)

	if c.store != nil {
		cached, err := c.store.GetAnalysisCache(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check analysis cache")
		} else if cached != nil {
			log.Debug().Str("hash", key[:16]).Msg("analysis cache hit")
			return &Generation{Text: cached.Response}, nil
		}
	}

	gen, err := c.inner.Generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	// Answers without a JSON object are not worth replaying
	if c.store != nil {
		if _, err := ExtractJSONObject(gen.Text); err == nil {
			entry := &storage.AnalysisCacheEntry{Model: c.model, Response: gen.Text}
			if err := c.store.SetAnalysisCache(key, entry); err != nil {
				log.Warn().Err(err).Msg("failed to cache analysis response")
			} else {
				log.Debug().Str("hash", key[:16]).Msg("cached analysis response")
			}
		}
	}

	return gen, nil
}
