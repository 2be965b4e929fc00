package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// CachedClient serves embeddings from a badger store and asks the wrapped
// client only for texts it has not seen. Entries are keyed by model and text.
type CachedClient struct {
	next   Client
	db     *badger.DB
	model  string
	logger *slog.Logger
}

// NewCachedClient opens the cache at path and wraps next. An empty path or
// "memory" keeps the cache in memory.
func NewCachedClient(next Client, model, path string, logger *slog.Logger) (*CachedClient, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" || path == "memory" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{next: next, db: db, model: model, logger: logger}, nil
}

// Embed returns cached vectors and fills misses from the wrapped client.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	err := c.db.View(func(txn *badger.Txn) error {
		for i, text := range texts {
			item, err := txn.Get(c.key(text))
			if errors.Is(err, badger.ErrKeyNotFound) {
				missing = append(missing, text)
				missingIdx = append(missingIdx, i)
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				out[i] = decodeVector(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missing))
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		for j, vec := range fresh {
			out[missingIdx[j]] = vec
			if err := txn.Set(c.key(missing[j]), encodeVector(vec)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A failed write only costs a future cache miss.
		c.logger.Warn("failed to write embedding cache", "error", err)
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the number of dimensions of the wrapped client.
func (c *CachedClient) Dimensions() int {
	return c.next.Dimensions()
}

// Close closes the cache and the wrapped client.
func (c *CachedClient) Close() error {
	return errors.Join(c.db.Close(), c.next.Close())
}

func (c *CachedClient) key(text string) []byte {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return []byte("emb:" + hex.EncodeToString(sum[:]))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
