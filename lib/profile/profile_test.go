// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"strings"
	"testing"
)

func TestEmbeddedProfilesParseAndValidate(t *testing.T) {
	profiles, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(profiles) < 2 {
		t.Fatalf("loaded %d profiles, want at least cloud and datacenter", len(profiles))
	}
}

func TestLookupCloud(t *testing.T) {
	cloud, err := Lookup("cloud")
	if err != nil {
		t.Fatalf("Lookup(cloud): %v", err)
	}
	if cloud.TrackerAPIPrefix != "/rest/api/3" {
		t.Errorf("TrackerAPIPrefix = %q", cloud.TrackerAPIPrefix)
	}
	if !strings.HasPrefix(cloud.WikiAPIPrefix, "/wiki") {
		t.Errorf("WikiAPIPrefix = %q, want /wiki context path", cloud.WikiAPIPrefix)
	}
}

func TestLookupDatacenter(t *testing.T) {
	datacenter, err := Lookup("datacenter")
	if err != nil {
		t.Fatalf("Lookup(datacenter): %v", err)
	}
	if datacenter.TrackerAPIPrefix != "/rest/api/2" {
		t.Errorf("TrackerAPIPrefix = %q", datacenter.TrackerAPIPrefix)
	}
}

func TestLookupUnknownDeployment(t *testing.T) {
	_, err := Lookup("on-a-boat")
	if err == nil {
		t.Fatal("expected error for unknown deployment")
	}
	if !strings.Contains(err.Error(), "cloud") {
		t.Errorf("error should list known deployments: %v", err)
	}
}
