package spec

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

type frontMatter struct {
	ID        string     `yaml:"id,omitempty"`
	Title     string     `yaml:"title,omitempty"`
	Status    string     `yaml:"status,omitempty"`
	Tags      []string   `yaml:"tags,omitempty"`
	Relations []Relation `yaml:"relations,omitempty"`
	Updated   time.Time  `yaml:"updated,omitempty"`
}

// ParseDocument parses a markdown spec document. Missing ids are derived
// from the file name and missing titles from the first level-one heading.
// UpdatedAt is left zero when the front matter does not carry it.
func ParseDocument(content, path string) (*Spec, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	meta, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, path, err)
	}

	var fm frontMatter
	if meta != "" {
		if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
			return nil, fmt.Errorf("%w: %s: front matter: %v", ErrInvalidSpec, path, err)
		}
	}

	s := &Spec{
		ID:        fm.ID,
		Title:     fm.Title,
		Body:      strings.TrimSpace(body),
		Tags:      fm.Tags,
		Relations: fm.Relations,
		UpdatedAt: fm.Updated,
		Path:      path,
	}

	if fm.Status != "" {
		st, err := ParseStatus(fm.Status)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.Status = st
	}

	if s.ID == "" && path != "" {
		base := filepath.Base(path)
		s.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if s.Title == "" {
		s.Title = firstHeading(s.Body)
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// RenderDocument is the inverse of ParseDocument.
func RenderDocument(s *Spec) ([]byte, error) {
	fm := frontMatter{
		ID:        s.ID,
		Title:     s.Title,
		Status:    string(s.Status),
		Tags:      s.Tags,
		Relations: s.Relations,
		Updated:   s.UpdatedAt,
	}

	meta, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(meta)
	buf.WriteString(frontMatterDelim + "\n")
	if s.Body != "" {
		buf.WriteString(s.Body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func splitFrontMatter(content string) (meta, body string, err error) {
	if !strings.HasPrefix(content, frontMatterDelim+"\n") {
		return "", content, nil
	}

	rest := content[len(frontMatterDelim)+1:]
	if strings.HasPrefix(rest, frontMatterDelim+"\n") || rest == frontMatterDelim {
		return "", strings.TrimPrefix(rest, frontMatterDelim), nil
	}

	endIdx := strings.Index(rest, "\n"+frontMatterDelim)
	if endIdx == -1 {
		return "", "", fmt.Errorf("unterminated front matter")
	}

	meta = rest[:endIdx]
	body = rest[endIdx+len(frontMatterDelim)+1:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return meta, body, nil
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
