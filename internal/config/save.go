package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetValue sets a dotted key such as "render.line_numbers" to a scalar
// value in the config file, keeping comments and the rest of the file.
// Missing mappings along the path are created.
func SetValue(configPath, key, value string) error {
	if key == "" {
		return fmt.Errorf("empty config key")
	}
	return editDocument(configPath, func(root *yaml.Node) error {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child := mappingValue(node, part)
			if child == nil {
				child = &yaml.Node{Kind: yaml.MappingNode}
				setMappingValue(node, part, child)
			}
			if child.Kind != yaml.MappingNode {
				return fmt.Errorf("%s: %q is not a mapping", key, part)
			}
			node = child
		}
		last := parts[len(parts)-1]
		if existing := mappingValue(node, last); existing != nil && existing.Kind != yaml.ScalarNode {
			return fmt.Errorf("%s is not a scalar", key)
		}
		setMappingValue(node, last, scalarNode(value))
		return nil
	})
}

// AddGrammarDir appends dir to grammar_dirs unless it is already listed.
func AddGrammarDir(configPath, dir string) error {
	return editDocument(configPath, func(root *yaml.Node) error {
		seq := mappingValue(root, "grammar_dirs")
		if seq == nil {
			seq = &yaml.Node{Kind: yaml.SequenceNode}
			setMappingValue(root, "grammar_dirs", seq)
		}
		if seq.Kind != yaml.SequenceNode {
			return fmt.Errorf("grammar_dirs is not a list")
		}
		for _, item := range seq.Content {
			if item.Value == dir {
				return nil
			}
		}
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: dir})
		return nil
	})
}

// editDocument parses the file into a yaml.Node tree so comments survive,
// applies edit to the root mapping and writes the result atomically.
func editDocument(configPath string, edit func(root *yaml.Node) error) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}
	if err := edit(doc.Content[0]); err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".tmlight.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			// Keep a trailing comment written next to the old value.
			value.LineComment = m.Content[i+1].LineComment
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
}

// scalarNode lets yaml.v3 pick the tag so "true" and "4" stay untyped
// plain scalars rather than quoted strings.
func scalarNode(value string) *yaml.Node {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(value), &n); err == nil &&
		n.Kind == yaml.DocumentNode && len(n.Content) == 1 && n.Content[0].Kind == yaml.ScalarNode {
		return n.Content[0]
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}
