package cache

import "net/url"

type sourceURI struct {
	scheme string
	path   string
}

// parseSourceURI extracts the scheme and, for file URIs, the local
// filesystem path to read from.
func parseSourceURI(raw string) (sourceURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return sourceURI{}, err
	}
	if u.Scheme == "file" {
		return sourceURI{scheme: "file", path: u.Path}, nil
	}
	return sourceURI{scheme: u.Scheme}, nil
}
