package transport

import (
	"compress/flate"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding lists every encoding decodeBody understands.
const acceptEncoding = "gzip, deflate, br, zstd"

var gzipReaderPool = sync.Pool{
	New: func() any {
		return new(gzip.Reader)
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, _ := zstd.NewReader(nil)
		return decoder
	},
}

var brotliReaderPool = sync.Pool{
	New: func() any {
		return new(brotli.Reader)
	},
}

type compositeReadCloser struct {
	io.Reader
	closers []func() error
}

func (c *compositeReadCloser) Close() error {
	var firstErr error
	for _, fn := range c.closers {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decodeBody wraps body with a decompressor for the first recognised
// Content-Encoding. Unknown or identity encodings pass body through.
func decodeBody(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	if body == nil {
		return nil, fmt.Errorf("transport: response body is nil")
	}
	if contentEncoding == "" {
		return body, nil
	}
	for _, raw := range strings.Split(contentEncoding, ",") {
		switch strings.TrimSpace(strings.ToLower(raw)) {
		case "gzip":
			gr := gzipReaderPool.Get().(*gzip.Reader)
			if err := gr.Reset(body); err != nil {
				gzipReaderPool.Put(gr)
				_ = body.Close()
				return nil, fmt.Errorf("transport: reset gzip reader: %w", err)
			}
			return &compositeReadCloser{Reader: gr, closers: []func() error{
				func() error {
					err := gr.Close()
					gzipReaderPool.Put(gr)
					return err
				},
				body.Close,
			}}, nil
		case "deflate":
			fr := flate.NewReader(body)
			return &compositeReadCloser{Reader: fr, closers: []func() error{fr.Close, body.Close}}, nil
		case "br":
			br := brotliReaderPool.Get().(*brotli.Reader)
			if err := br.Reset(body); err != nil {
				brotliReaderPool.Put(br)
				_ = body.Close()
				return nil, fmt.Errorf("transport: reset brotli reader: %w", err)
			}
			return &compositeReadCloser{Reader: br, closers: []func() error{
				func() error {
					brotliReaderPool.Put(br)
					return nil
				},
				body.Close,
			}}, nil
		case "zstd":
			decoder := zstdDecoderPool.Get().(*zstd.Decoder)
			if decoder == nil {
				_ = body.Close()
				return nil, fmt.Errorf("transport: zstd decoder unavailable")
			}
			if err := decoder.Reset(body); err != nil {
				zstdDecoderPool.Put(decoder)
				_ = body.Close()
				return nil, fmt.Errorf("transport: reset zstd decoder: %w", err)
			}
			return &compositeReadCloser{Reader: decoder, closers: []func() error{
				func() error {
					_ = decoder.Reset(nil)
					zstdDecoderPool.Put(decoder)
					return nil
				},
				body.Close,
			}}, nil
		}
	}
	return body, nil
}
