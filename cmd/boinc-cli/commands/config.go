package commands

import (
	"context"
	"fmt"

	"boincstats/lib/boinc"
	configlibsql "boincstats/lib/configutil/libsql"
	"boincstats/lib/diskcache"
	"boincstats/lib/scrapers/boincweb"
	"boincstats/lib/scrapers/wcg"
	"boincstats/lib/scrapers/yoyo"
	"boincstats/lib/telemetry"
)

const (
	KindWorldCommunityGrid = "worldcommunitygrid"
	KindBoinc              = "boinc"
	KindYoyo               = "yoyo"
)

type SiteConfig struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	// display name of the project, boinc and yoyo only
	Project           string  `json:"project"`
	BaseUrl           string  `json:"base_url"`
	UserId            string  `json:"user_id"`
	Username          string  `json:"username"`
	Password          string  `json:"password"`
	VerificationCode  string  `json:"verification_code"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

type Config struct {
	CacheDir  string              `json:"cache_dir"`
	Database  configlibsql.Struct `json:"database"`
	Verbose   bool                `json:"verbose"`
	Telemetry telemetry.Config    `json:"telemetry"`
	Sites     []SiteConfig        `json:"sites"`
}

func (c Config) cacheDir() string {
	if c.CacheDir == "" {
		return ".cache/boinc"
	}
	return c.CacheDir
}

// Source is a site pipeline.
type Source interface {
	Name() string
	Scrape(ctx context.Context) boinc.Harvest
}

func newSource(site SiteConfig, cache *diskcache.Cache, states *boinc.StateSet, tel telemetry.API) (Source, error) {
	switch site.Kind {
	case KindWorldCommunityGrid:
		return wcg.NewClient(wcg.ClientOptions{
			Name:              site.Name,
			BaseURL:           site.BaseUrl,
			Username:          site.Username,
			Password:          site.Password,
			VerificationCode:  site.VerificationCode,
			RequestsPerSecond: site.RequestsPerSecond,
			CloudflareBypass:  site.CloudflareBypass,
			Cache:             cache,
			States:            states,
			Tel:               tel,
		})
	case KindBoinc, KindYoyo:
		opts := boincweb.ClientOptions{
			Name:              site.Name,
			Project:           site.Project,
			BaseURL:           site.BaseUrl,
			UserID:            site.UserId,
			Email:             site.Username,
			Password:          site.Password,
			RequestsPerSecond: site.RequestsPerSecond,
			CloudflareBypass:  site.CloudflareBypass,
			Cache:             cache,
			States:            states,
			Tel:               tel,
		}
		if site.Kind == KindYoyo {
			return yoyo.NewClient(opts)
		}
		return boincweb.NewClient(opts)
	default:
		return nil, fmt.Errorf("unknown site kind %q (%s)", site.Kind, site.Name)
	}
}
