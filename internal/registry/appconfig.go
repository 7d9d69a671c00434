package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// setAppConfigBool sets the boolean at keyPath in dir's config.yaml, creating
// intermediate mappings as needed. Comments and key order are preserved.
// A missing file is left alone and reported as (false, nil).
func setAppConfigBool(dir string, value bool, keyPath ...string) (bool, error) {
	p := filepath.Join(dir, AppConfigFile)
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", AppConfigFile, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return false, fmt.Errorf("parse %s: %w", AppConfigFile, err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return false, fmt.Errorf("parse %s: top level is not a mapping", AppConfigFile)
	}
	node := doc.Content[0]
	for i, key := range keyPath {
		last := i == len(keyPath)-1
		child := mappingValue(node, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, child)
		}
		if last {
			child.Kind = yaml.ScalarNode
			child.Tag = "!!bool"
			child.Style = 0
			child.Content = nil
			child.Value = fmt.Sprint(value)
			break
		}
		if child.Kind != yaml.MappingNode {
			child.Kind = yaml.MappingNode
			child.Tag = "!!map"
			child.Value = ""
			child.Content = nil
		}
		node = child
	}
	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return false, fmt.Errorf("encode %s: %w", AppConfigFile, err)
	}
	if err := enc.Close(); err != nil {
		return false, err
	}
	if err := os.WriteFile(p, out.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", AppConfigFile, err)
	}
	return true, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// readAppConfigBool returns the boolean at keyPath, if present.
func readAppConfigBool(dir string, keyPath ...string) (bool, bool) {
	b, err := os.ReadFile(filepath.Join(dir, AppConfigFile))
	if err != nil {
		return false, false
	}
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return false, false
	}
	for _, k := range keyPath {
		m, ok := v.(map[string]any)
		if !ok {
			return false, false
		}
		v = m[k]
	}
	bv, ok := v.(bool)
	return bv, ok
}

// RelaxSecurity flips an existing securityOverride: false to true so the app
// accepts connections from the launcher's network setup. A config without the
// key is left untouched.
func RelaxSecurity(dir string) error {
	if v, ok := readAppConfigBool(dir, "securityOverride"); !ok || v {
		return nil
	}
	_, err := setAppConfigBool(dir, true, "securityOverride")
	return err
}

// SetSpeedOptimization toggles the app's cache busting: enabling speed
// optimisation disables cacheBuster so browsers may reuse cached assets.
// The change takes effect after the app restarts.
func SetSpeedOptimization(dir string, enable bool) error {
	_, err := setAppConfigBool(dir, !enable, "cacheBuster", "enabled")
	return err
}

// SpeedOptimized reports whether dir's config currently has cache busting off.
func SpeedOptimized(dir string) bool {
	enabled, ok := readAppConfigBool(dir, "cacheBuster", "enabled")
	return ok && !enabled
}
