package scraper

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

const MetadataFileExtension = ".meta"

// PageMetadata holds metadata for saved pages
type PageMetadata struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	StatusCode  int    `json:"status_code,omitempty"`
}

// savePageMetadata saves metadata to a .meta file
func savePageMetadata(filename string, metadata PageMetadata) error {
	metadataFilename := filename + MetadataFileExtension
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	err = os.WriteFile(metadataFilename, metadataBytes, os.FileMode(0644))
	if err != nil {
		return fmt.Errorf("failed to write metadata file %s: %w", metadataFilename, err)
	}
	return nil
}

// LoadPageMetadata loads metadata written next to a saved page.
func LoadPageMetadata(filename string) (PageMetadata, error) {
	var metadata PageMetadata
	metadataFilename := filename + MetadataFileExtension
	metadataBytes, err := os.ReadFile(metadataFilename)
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file %s: %w", metadataFilename, err)
	}

	err = json.Unmarshal(metadataBytes, &metadata)
	if err != nil {
		return metadata, fmt.Errorf("failed to parse metadata file %s: %w", metadataFilename, err)
	}
	return metadata, nil
}

// LoadSavedResponse reads a page written with SaveToFile back as a Response,
// decoded with the charset recorded in its metadata.
func LoadSavedResponse(filename string, log Logger) (*Response, error) {
	metadata, err := LoadPageMetadata(filename)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read saved page %s: %w", filename, err)
	}
	u, err := url.Parse(metadata.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url in %s%s: %w", filename, MetadataFileExtension, err)
	}

	req := &http.Request{Method: http.MethodGet, URL: u, Header: http.Header{}}
	session := &Session{Log: log}
	return session.decode(req, metadata.ContentType, body)
}
