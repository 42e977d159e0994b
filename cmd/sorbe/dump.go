package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	sorbe "github.com/minty1202/sorbe-tpl"
)

// dump writes d to w in the given format, keeping insertion order.
func dump(w io.Writer, d *sorbe.Dict, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlNode(d)); err != nil {
			return err
		}
		return enc.Close()

	case "sorbe":
		return sorbe.NewEncoder(w).Encode(d)
	}

	return fmt.Errorf("unknown format %q (want json, yaml or sorbe)", format)
}

// yamlNode converts v to a YAML node tree so that mappings keep insertion
// order and numbers keep their representation.
func yamlNode(v sorbe.Value) *yaml.Node {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}

	switch v := v.(type) {
	case sorbe.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(v)))
	case sorbe.Int:
		return scalar("!!int", strconv.FormatInt(int64(v), 10))
	case sorbe.Uint:
		return scalar("!!int", strconv.FormatUint(uint64(v), 10))
	case sorbe.Float:
		s := strconv.FormatFloat(float64(v), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return scalar("!!float", s)
	case sorbe.String:
		return scalar("!!str", string(v))
	case *sorbe.Dict:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, e := range v.All() {
			n.Content = append(n.Content, scalar("!!str", k), yamlNode(e))
		}
		return n
	}

	return scalar("!!null", "null")
}
