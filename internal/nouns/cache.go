package nouns

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketEmbeddings = "embeddings"

// Cache stores embedding vectors on disk keyed by model and text
type Cache struct {
	db *bolt.DB
}

// OpenCache opens or creates the cache file at path
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEmbeddings))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	return []byte(model + "\x00" + text)
}

// Get returns the cached vector for text, if any
func (c *Cache) Get(model, text string) ([]float32, bool, error) {
	var vec []float32
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketEmbeddings)).Get(cacheKey(model, text))
		if v == nil {
			return nil
		}
		var err error
		vec, err = decodeVector(v)
		return err
	})
	return vec, vec != nil, err
}

// PutAll stores vectors[i] for texts[i] in one transaction
func (c *Cache) PutAll(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("cache: %d texts for %d vectors", len(texts), len(vectors))
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEmbeddings))
		for i, text := range texts {
			if err := b.Put(cacheKey(model, text), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.New("cache: corrupt vector")
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
