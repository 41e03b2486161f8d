// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig tunes Compress.
type CompressionConfig struct {
	// MinSize is the smallest body worth compressing. Most SOS responses
	// are a few hundred bytes of JSON and go out as-is.
	MinSize int
	// Level is a compress/gzip level.
	Level int
}

// DefaultCompressionConfig compresses bodies of 1 KiB and more.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{MinSize: 1024, Level: gzip.DefaultCompression}
}

// Compression is Compress with DefaultCompressionConfig.
func Compression(next http.Handler) http.Handler {
	return defaultCompress(next)
}

var defaultCompress = Compress(DefaultCompressionConfig())

// Compress gzips responses for clients that accept it. The decision is
// deferred until MinSize bytes are buffered or the handler returns.
// Upgrades and responses that already carry a Content-Encoding pass
// through untouched.
func Compress(cfg CompressionConfig) func(http.Handler) http.Handler {
	if cfg.MinSize < 0 {
		cfg.MinSize = 0
	}
	if cfg.Level < gzip.HuffmanOnly || cfg.Level > gzip.BestCompression {
		cfg.Level = gzip.DefaultCompression
	}
	pool := &sync.Pool{
		New: func() any {
			gz, _ := gzip.NewWriterLevel(io.Discard, cfg.Level) // level checked above
			return gz
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsGzip(r) || r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressWriter{ResponseWriter: w, pool: pool, minSize: cfg.MinSize}
			defer cw.finish()
			next.ServeHTTP(cw, r)
		})
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// compressWriter buffers the start of a body until it knows whether
// compressing it pays off.
type compressWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	minSize int

	status  int
	buf     []byte
	started bool
	gz      *gzip.Writer
}

func (c *compressWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	if c.started {
		if c.gz != nil {
			return c.gz.Write(p)
		}
		return c.ResponseWriter.Write(p)
	}

	c.buf = append(c.buf, p...)
	if len(c.buf) < c.minSize {
		return len(p), nil
	}
	if err := c.start(true); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush commits to compression so streamed bodies keep flowing.
func (c *compressWriter) Flush() {
	if !c.started {
		if c.status == 0 {
			c.status = http.StatusOK
		}
		_ = c.start(true)
	}
	if c.gz != nil {
		_ = c.gz.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// start writes the headers and whatever was buffered.
func (c *compressWriter) start(compress bool) error {
	c.started = true
	h := c.Header()
	if h.Get("Content-Encoding") != "" || !bodyAllowed(c.status) {
		compress = false
	}
	if compress {
		if h.Get("Content-Type") == "" && len(c.buf) > 0 {
			// net/http would sniff the compressed bytes otherwise.
			h.Set("Content-Type", http.DetectContentType(c.buf))
		}
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		c.gz = c.pool.Get().(*gzip.Writer)
		c.gz.Reset(c.ResponseWriter)
	}
	c.ResponseWriter.WriteHeader(c.status)

	buf := c.buf
	c.buf = nil
	if len(buf) == 0 {
		return nil
	}
	var err error
	if c.gz != nil {
		_, err = c.gz.Write(buf)
	} else {
		_, err = c.ResponseWriter.Write(buf)
	}
	return err
}

func (c *compressWriter) finish() {
	if !c.started {
		if c.status == 0 {
			return
		}
		_ = c.start(false)
	}
	if c.gz != nil {
		_ = c.gz.Close() // response already sent
		c.pool.Put(c.gz)
		c.gz = nil
	}
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}
