package cache

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// hashRecord is the persisted metadata for one cached file: every digest
// computed for it, and every source URI known to resolve to it.
type hashRecord struct {
	Hashes map[string]string `json:"hashes"`
	URIs   map[string]bool   `json:"uris"`
}

func (c *Cache) lookupRecord(uri string) (hashRecord, bool) {
	var rec hashRecord
	var found bool
	_ = c.index.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketHashes).Get([]byte(cacheName(uri)))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return rec, found
}

func (c *Cache) storeRecord(uri string, md5hex, sha1hex string) error {
	key := cacheName(uri)
	return c.index.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHashes)

		rec := hashRecord{Hashes: map[string]string{}, URIs: map[string]bool{}}
		if data := b.Get([]byte(key)); data != nil {
			_ = json.Unmarshal(data, &rec)
		}
		if rec.Hashes == nil {
			rec.Hashes = map[string]string{}
		}
		if rec.URIs == nil {
			rec.URIs = map[string]bool{}
		}
		if md5hex != "" {
			rec.Hashes["md5"] = md5hex
		}
		if sha1hex != "" {
			rec.Hashes["sha1"] = sha1hex
		}
		rec.URIs[uri] = true

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("cache: marshal hash record: %w", err)
		}
		return b.Put([]byte(key), data)
	})
}
