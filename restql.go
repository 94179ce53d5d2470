// Package restql parses fields queries such as
//
//	{name, age, course(code: "CS50"){name, -author, title: heading}}
//
// into a tree of Query nodes describing, per nesting level, which fields are
// included or excluded, how they are renamed, and which arguments apply.
// Consumers use the tree to project resources, build filter parameters and
// plan eager loading of relations.
package restql

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// Parser parses fields queries under a fixed configuration.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	cfg    Config
	logger *zap.Logger
}

// Option configures a Parser during construction.
type Option func(*Parser)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(p *Parser) {
		p.cfg = cfg
	}
}

// WithQueryParam sets the request parameter name read by ParseValues.
func WithQueryParam(name string) Option {
	return func(p *Parser) {
		p.cfg.QueryParamName = name
	}
}

// WithMaxAliasLen sets the alias length limit used by projections.
func WithMaxAliasLen(n int) Option {
	return func(p *Parser) {
		p.cfg.MaxAliasLen = n
	}
}

// WithLogger sets the logger used for debug output. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser. Without options it uses DefaultConfig and a
// no-op logger.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the parser's settings.
func (p *Parser) Config() Config {
	return p.cfg
}

var defaultParser = NewParser()

// Parse parses text with the default configuration.
func Parse(text string) (*Query, error) {
	return defaultParser.Parse(text)
}

// Parse parses a fields query into its Query tree.
// It returns a *SyntaxError for text that does not follow the grammar and a
// *QueryFormatError for well-formed text with contradictory aliases.
func (p *Parser) Parse(text string) (*Query, error) {
	tz := newTokenizer(text)
	tokens, err := tz.tokenize()
	if err != nil {
		p.logger.Debug("tokenize failed", zap.String("query", text), zap.Error(err))
		return nil, err
	}
	ps := &parser{tokens: tokens, tzer: tz}
	raw, err := ps.parseQuery()
	if err != nil {
		p.logger.Debug("parse failed", zap.String("query", text), zap.Error(err))
		return nil, err
	}
	b := &builder{tzer: tz}
	q, err := b.build(raw, "")
	if err != nil {
		p.logger.Debug("query rejected", zap.String("query", text), zap.Error(err))
		return nil, err
	}
	p.logger.Debug("parsed query",
		zap.String("query", text),
		zap.Int("included", len(q.Included)),
		zap.Int("excluded", len(q.Excluded)))
	return q, nil
}

// HasQuery reports whether values carry the configured query parameter.
func (p *Parser) HasQuery(values url.Values) bool {
	_, ok := values[p.cfg.QueryParamName]
	return ok
}

// ParseValues parses the configured parameter from request values.
// It returns (nil, nil) when the parameter is absent, which consumers treat
// as "select everything".
func (p *Parser) ParseValues(values url.Values) (*Query, error) {
	if !p.HasQuery(values) {
		return nil, nil
	}
	return p.Parse(values.Get(p.cfg.QueryParamName))
}

// ParseOrAll parses the configured parameter and falls back to All when it is
// absent or invalid. Use it where reporting the error is left to another
// layer, such as filter parameters or eager-loading plans.
func (p *Parser) ParseOrAll(values url.Values) *Query {
	q, err := p.ParseValues(values)
	if err != nil {
		p.logger.Debug("falling back to all fields", zap.Error(err))
		return All()
	}
	if q == nil {
		return All()
	}
	return q
}

// --- Per-request cache ---

type cacheKey struct{}

type cacheEntry struct {
	query *Query
	err   error
}

// Cache memoizes parse results by raw query text. A Cache is meant to live as
// long as one logical request; it is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Len returns the number of cached query texts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NewContext returns a child context carrying a fresh Cache.
func NewContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, NewCache())
}

// CacheFromContext returns the Cache attached by NewContext, or nil.
func CacheFromContext(ctx context.Context) *Cache {
	c, _ := ctx.Value(cacheKey{}).(*Cache)
	return c
}

// ParseContext parses text, reusing an earlier result for the same text when
// ctx carries a Cache. Errors are cached too: parsing is deterministic.
func (p *Parser) ParseContext(ctx context.Context, text string) (*Query, error) {
	c := CacheFromContext(ctx)
	if c == nil {
		return p.Parse(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[text]; ok {
		p.logger.Debug("query cache hit", zap.String("query", text))
		return e.query, e.err
	}
	q, err := p.Parse(text)
	c.entries[text] = cacheEntry{query: q, err: err}
	return q, err
}
