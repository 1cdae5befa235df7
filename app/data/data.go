// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package data ships the hardware and grid reference datasets the estimation
// pipeline depends on: per-instance-type power draw profiles, per-provider
// PUE figures, the cloud-region to grid-zone mapping, and yearly-average
// grid intensities. The datasets are embedded so a cluster with no outbound
// network access still produces estimates.
package data

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed profiles.yaml
var profilesRaw []byte

//go:embed datacenters.yaml
var datacentersRaw []byte

// PowerProfile describes an instance type's power envelope.
type PowerProfile struct {
	VCores   float64 `yaml:"vcores"`
	MinWatts float64 `yaml:"min_watts"`
	MaxWatts float64 `yaml:"max_watts"`
}

// Catalog is the loaded reference dataset.
type Catalog struct {
	profiles         map[string]PowerProfile
	defaultProfile   PowerProfile
	pue              map[string]float64
	zones            map[string]string
	defaultIntensity map[string]float64
}

type profilesFile struct {
	InstanceProfiles map[string]PowerProfile `yaml:"instance_profiles"`
	DefaultProfile   PowerProfile            `yaml:"default_profile"`
}

type datacentersFile struct {
	PUE              map[string]float64 `yaml:"pue"`
	Zones            map[string]string  `yaml:"zones"`
	DefaultIntensity map[string]float64 `yaml:"default_intensity"`
}

var (
	loadOnce    sync.Once
	loadedCat   *Catalog
	loadedError error
)

// Load parses the embedded datasets. The result is cached; repeated calls
// return the same catalog.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		loadedCat, loadedError = parse(profilesRaw, datacentersRaw)
	})
	return loadedCat, loadedError
}

func parse(profiles, datacenters []byte) (*Catalog, error) {
	var pf profilesFile
	if err := yaml.Unmarshal(profiles, &pf); err != nil {
		return nil, errors.Wrap(err, "parsing instance profiles")
	}
	if pf.DefaultProfile.VCores <= 0 || pf.DefaultProfile.MaxWatts <= pf.DefaultProfile.MinWatts {
		return nil, errors.New("default power profile is not usable")
	}

	var df datacentersFile
	if err := yaml.Unmarshal(datacenters, &df); err != nil {
		return nil, errors.Wrap(err, "parsing datacenter dataset")
	}

	return &Catalog{
		profiles:         pf.InstanceProfiles,
		defaultProfile:   pf.DefaultProfile,
		pue:              df.PUE,
		zones:            df.Zones,
		defaultIntensity: df.DefaultIntensity,
	}, nil
}

// ProfileFor returns the power profile for an instance type.
func (c *Catalog) ProfileFor(instanceType string) (PowerProfile, bool) {
	p, ok := c.profiles[instanceType]
	return p, ok
}

// DefaultProfile returns the fallback profile used when an instance type is
// unknown or node data is missing entirely.
func (c *Catalog) DefaultProfile() PowerProfile {
	return c.defaultProfile
}

// PUEFor returns the provider's data-center PUE.
func (c *Catalog) PUEFor(provider string) (float64, bool) {
	v, ok := c.pue[provider]
	return v, ok
}

// ZoneFor maps a cloud region to its Electricity Maps grid zone.
func (c *Catalog) ZoneFor(region string) (string, bool) {
	z, ok := c.zones[region]
	return z, ok
}

// DefaultIntensityFor returns the yearly-average grid intensity for a zone in
// gCO2e/kWh.
func (c *Catalog) DefaultIntensityFor(zone string) (float64, bool) {
	v, ok := c.defaultIntensity[zone]
	return v, ok
}
