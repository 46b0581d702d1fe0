package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/metrics"
)

const (
	readChunkSize = 16 * 1024
	hashChunkSize = 32 * 1024
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Cache returns the local path for uri, downloading it first unless it
// is already cached and refresh is false. Failures reaching the source
// surface as *CachingURLError; local write/rename failures surface as
// *CachingIOError.
func (c *Cache) Cache(item *contentmodel.Item, uri string, refresh bool) (string, error) {
	if !refresh && c.IsCached(item, uri, false) {
		return c.cachedPath(uri), nil
	}

	final := c.cachedPath(uri)
	staging := c.downloadingPath(uri)

	if err := c.download(uri, staging); err != nil {
		return "", err
	}

	if err := os.Rename(staging, final); err != nil {
		return "", &CachingIOError{Path: final, Err: err}
	}

	md5hex, sha1hex, err := hashFile(final)
	if err != nil {
		return "", &CachingIOError{Path: final, Err: err}
	}
	if err := c.storeRecord(uri, md5hex, sha1hex); err != nil {
		return "", &CachingIOError{Path: final, Err: err}
	}

	return final, nil
}

// download streams uri to dest in readChunkSize chunks, via an httpClient
// GET for http(s) URIs or a direct copy for file:// URIs.
func (c *Cache) download(uri, dest string) error {
	src, closer, err := openSource(uri)
	if err != nil {
		return &CachingURLError{URI: uri, Err: err}
	}
	if closer != nil {
		defer closer()
	}

	out, err := os.Create(dest)
	if err != nil {
		return &CachingIOError{Path: dest, Err: err}
	}
	defer out.Close()

	buf := make([]byte, readChunkSize)
	n, err := io.CopyBuffer(out, src, buf)
	if err != nil {
		os.Remove(dest)
		return &CachingURLError{URI: uri, Err: err}
	}
	metrics.CacheBytesDownloadedTotal.Add(float64(n))
	return nil
}

func openSource(uri string) (io.Reader, func(), error) {
	u, err := parseSourceURI(uri)
	if err != nil {
		return nil, nil, err
	}

	switch u.scheme {
	case "file", "":
		f, err := os.Open(u.path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	default:
		resp, err := httpClient.Get(uri)
		if err != nil {
			return nil, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp.Body, func() { resp.Body.Close() }, nil
	}
}

// hashFile computes both the MD5 and SHA1 of path's contents, reading in
// hashChunkSize chunks so large cached files never need to load fully
// into memory at once.
func hashFile(path string) (md5hex, sha1hex string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	buf := make([]byte, hashChunkSize)

	if _, err := io.CopyBuffer(io.MultiWriter(md5h, sha1h), f, buf); err != nil {
		return "", "", err
	}

	return hex.EncodeToString(md5h.Sum(nil)), hex.EncodeToString(sha1h.Sum(nil)), nil
}
