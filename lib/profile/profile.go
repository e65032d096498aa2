// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile provides embedded deployment profiles for the REST
// backends. Cloud and datacenter deployments of the same products
// mount their APIs at different path prefixes and expose different
// search endpoints; a profile captures those differences so the
// clients stay deployment-agnostic.
//
// Profiles are authored as JSONC (JSON with comments and trailing
// commas) and embedded at compile time via go:embed. They are parsed
// and validated at first use — a failure indicates a bug in the
// embedded content, not a runtime condition.
package profile

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/jsonc"
)

//go:embed profiles/*.jsonc
var profileFiles embed.FS

// Profile describes how one deployment flavor mounts its REST APIs.
type Profile struct {
	// Deployment is the flavor name ("cloud", "datacenter"). This is
	// the value referenced from configuration.
	Deployment string `json:"deployment"`

	// TrackerAPIPrefix is the path prefix for tracker REST resources.
	TrackerAPIPrefix string `json:"tracker_api_prefix"`

	// TrackerSearchPath is the tracker's structured-search endpoint.
	TrackerSearchPath string `json:"tracker_search_path"`

	// WikiAPIPrefix is the path prefix for wiki REST resources.
	WikiAPIPrefix string `json:"wiki_api_prefix"`

	// WikiSearchPath is the wiki's structured-search endpoint.
	WikiSearchPath string `json:"wiki_search_path"`
}

var (
	loadOnce sync.Once
	loaded   map[string]Profile
	loadErr  error
)

// load parses every embedded profile once.
func load() (map[string]Profile, error) {
	loadOnce.Do(func() {
		entries, err := profileFiles.ReadDir("profiles")
		if err != nil {
			loadErr = fmt.Errorf("reading embedded profile directory: %w", err)
			return
		}

		profiles := make(map[string]Profile, len(entries))
		for _, entry := range entries {
			data, err := profileFiles.ReadFile("profiles/" + entry.Name())
			if err != nil {
				loadErr = fmt.Errorf("reading embedded profile %s: %w", entry.Name(), err)
				return
			}

			var parsed Profile
			if err := json.Unmarshal(jsonc.ToJSON(data), &parsed); err != nil {
				loadErr = fmt.Errorf("parsing profile %s: %w", entry.Name(), err)
				return
			}
			if err := parsed.validate(); err != nil {
				loadErr = fmt.Errorf("profile %s: %w", entry.Name(), err)
				return
			}
			if _, exists := profiles[parsed.Deployment]; exists {
				loadErr = fmt.Errorf("profile %s: duplicate deployment %q", entry.Name(), parsed.Deployment)
				return
			}
			profiles[parsed.Deployment] = parsed
		}
		loaded = profiles
	})
	return loaded, loadErr
}

func (p *Profile) validate() error {
	if p.Deployment == "" {
		return fmt.Errorf("missing deployment name")
	}
	for name, value := range map[string]string{
		"tracker_api_prefix":  p.TrackerAPIPrefix,
		"tracker_search_path": p.TrackerSearchPath,
		"wiki_api_prefix":     p.WikiAPIPrefix,
		"wiki_search_path":    p.WikiSearchPath,
	} {
		if value == "" {
			return fmt.Errorf("missing %s", name)
		}
	}
	return nil
}

// Lookup returns the profile for a deployment flavor. Unknown flavors
// list the known ones in the error so configuration mistakes are
// self-explanatory.
func Lookup(deployment string) (Profile, error) {
	profiles, err := load()
	if err != nil {
		return Profile{}, err
	}
	found, ok := profiles[deployment]
	if !ok {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		return Profile{}, fmt.Errorf("unknown deployment %q (known: %v)", deployment, names)
	}
	return found, nil
}
