package index

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// runtimeMeta is the subset of a collection's meta/runtime.yml that routes
// module names
type runtimeMeta struct {
	PluginRouting struct {
		Modules map[string]struct {
			Redirect string `yaml:"redirect"`
		} `yaml:"modules"`
	} `yaml:"plugin_routing"`
}

// ParseRuntime reads module redirects from meta/runtime.yml content. The
// result maps "<collection>.<short>" and "<short>" to the redirect target.
func ParseRuntime(collection string, data []byte) (map[string]string, error) {
	var meta runtimeMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse runtime metadata of %s: %w", collection, err)
	}
	return redirectsFrom(collection, meta), nil
}

// parseRedirects reads the redirects of an already decoded meta/runtime.yml
func parseRedirects(col *model.Collection) map[string]string {
	if len(col.MetaRuntime) == 0 {
		return nil
	}
	// Round-trip through YAML to reuse the typed decoder
	data, err := yaml.Marshal(col.MetaRuntime)
	if err != nil {
		return nil
	}
	redirects, err := ParseRuntime(col.Name, data)
	if err != nil {
		return nil
	}
	return redirects
}

func redirectsFrom(collection string, meta runtimeMeta) map[string]string {
	out := make(map[string]string)
	for short, route := range meta.PluginRouting.Modules {
		target := strings.TrimSpace(route.Redirect)
		if target == "" {
			continue
		}
		out[short] = target
		if collection != "" {
			out[collection+"."+short] = target
		}
	}
	return out
}
