package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/policy/parser"
)

// Source loads the current policy document.
type Source interface {
	Load(ctx context.Context) (*ast.Document, error)
}

// FileSource loads policies from a file or a directory of .yml/.yaml
// files. Directory files are merged into one document in lexical
// order.
type FileSource struct {
	path   string
	parser *parser.Parser
}

// NewFileSource creates a source reading from the given file or
// directory.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, parser: parser.NewParser()}
}

// Path returns the watched file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Load parses the policy file, or every policy file under the
// directory.
func (s *FileSource) Load(ctx context.Context) (*ast.Document, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("policy source: %w", err)
	}

	if !info.IsDir() {
		return s.parser.ParseFile(s.path)
	}

	files, err := policyFiles(s.path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("policy source: no .yml or .yaml files under %s", s.path)
	}

	docs := make([]*ast.Document, 0, len(files))
	for _, file := range files {
		doc, err := s.parser.ParseFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return Merge(docs...), nil
}

// policyFiles lists the policy files directly under dir, sorted.
func policyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("policy source: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yml", ".yaml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Merge combines documents into one by concatenating each resource
// type's rules and summaries in document order. The first non-empty
// name and host URL win.
func Merge(docs ...*ast.Document) *ast.Document {
	merged := &ast.Document{
		ResourceRules: make(map[forge.ResourceType]*ast.ResourcePolicy),
	}
	for _, doc := range docs {
		if merged.Name == "" {
			merged.Name = doc.Name
		}
		if merged.HostURL == "" {
			merged.HostURL = doc.HostURL
		}
		if merged.SourceFile == "" {
			merged.SourceFile = doc.SourceFile
		}
		for rt, rp := range doc.ResourceRules {
			target := merged.ResourceRules[rt]
			if target == nil {
				target = &ast.ResourcePolicy{}
				merged.ResourceRules[rt] = target
			}
			target.Rules = append(target.Rules, rp.Rules...)
			target.Summaries = append(target.Summaries, rp.Summaries...)
		}
	}
	return merged
}
